package history

import (
	"reflect"
	"testing"
)

func TestWindow_AppendAndEvictFIFO(t *testing.T) {
	w := NewWindow(3)

	w.Append(1)
	w.Append(2)
	if got := w.Values(); !reflect.DeepEqual(got, []float64{1, 2}) {
		t.Fatalf("unexpected values before full: %v", got)
	}

	w.Append(3)
	w.Append(4)
	if got := w.Values(); !reflect.DeepEqual(got, []float64{2, 3, 4}) {
		t.Fatalf("expected oldest entry evicted first, got %v", got)
	}
	if w.Len() != 3 {
		t.Fatalf("expected length capped at 3, got %d", w.Len())
	}

	w.Append(5)
	w.Append(6)
	if got := w.Values(); !reflect.DeepEqual(got, []float64{4, 5, 6}) {
		t.Fatalf("unexpected values after wrap: %v", got)
	}
}

func TestStore_LazyCreationAndIsolation(t *testing.T) {
	s := NewStore(50)

	if got := s.Get("BTC/USDT"); len(got) != 0 {
		t.Fatalf("expected empty sequence for unknown symbol, got %v", got)
	}

	s.Record("BTC/USDT", 50000)
	s.Record("BTC/USDT", 50100)
	s.Record("ETH/USDT", 3000)

	if got := s.Get("BTC/USDT"); !reflect.DeepEqual(got, []float64{50000, 50100}) {
		t.Fatalf("unexpected BTC history: %v", got)
	}
	if got := s.Get("ETH/USDT"); !reflect.DeepEqual(got, []float64{3000}) {
		t.Fatalf("unexpected ETH history: %v", got)
	}
}

func TestStore_CapacityBound(t *testing.T) {
	s := NewStore(50)

	for i := 0; i < 120; i++ {
		s.Record("BTC/USDT", float64(i))
	}

	got := s.Get("BTC/USDT")
	if len(got) != 50 {
		t.Fatalf("expected history bounded at 50, got %d", len(got))
	}
	if got[0] != 70 || got[49] != 119 {
		t.Fatalf("expected oldest-first window [70..119], got head=%f tail=%f", got[0], got[49])
	}
}

func TestStore_Reset(t *testing.T) {
	s := NewStore(10)
	s.Record("BTC/USDT", 1)
	s.Record("ETH/USDT", 2)

	s.Reset()

	if s.Len("BTC/USDT") != 0 || s.Len("ETH/USDT") != 0 {
		t.Fatalf("expected all history cleared after reset")
	}
}
