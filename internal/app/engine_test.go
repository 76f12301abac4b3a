package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"paper-trader/internal/config"
	"paper-trader/internal/monitor"
	"paper-trader/internal/paper"
	"paper-trader/internal/quote"
)

type fakeQuotes struct {
	calls    int
	snapshot func(call int) (quote.Snapshot, error)
}

func (f *fakeQuotes) GetSnapshot(ctx context.Context, symbols []string) (quote.Snapshot, error) {
	f.calls++
	return f.snapshot(f.calls)
}

type fakeRecorder struct {
	ticks      []monitor.TickSnapshotPayload
	opens      []paper.Position
	closes     []paper.Trade
	rejections []error
	botStates  []string
	errs       []error
}

func (f *fakeRecorder) RecordTick(ctx context.Context, payload monitor.TickSnapshotPayload) {
	f.ticks = append(f.ticks, payload)
}

func (f *fakeRecorder) RecordOpen(ctx context.Context, pos paper.Position, q quote.TickerQuote) {
	f.opens = append(f.opens, pos)
}

func (f *fakeRecorder) RecordClose(ctx context.Context, trade paper.Trade) {
	f.closes = append(f.closes, trade)
}

func (f *fakeRecorder) RecordRejection(ctx context.Context, symbol string, reason error) {
	f.rejections = append(f.rejections, reason)
}

func (f *fakeRecorder) RecordBotState(ctx context.Context, running bool, action string) {
	f.botStates = append(f.botStates, action)
}

func (f *fakeRecorder) RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{}) {
	f.errs = append(f.errs, err)
}

func testConfig(mode string) *config.Config {
	return &config.Config{
		Provider: config.ProviderConfig{
			Name:    "binance",
			Symbols: []string{"BTC/USDT"},
		},
		Trading: config.TradingConfig{
			Mode:           mode,
			InitialBalance: 1000,
			FxRate:         1,
			HistoryWindow:  50,
			RSIPeriod:      2, // 短周期让 3 轮行情即可形成有效信号
			RSIBuy:         35,
			RSISell:        70,
			MinDipPct:      -3,
			StopLossPct:    0.05,
			TakeProfitPct:  0.10,
			Manual:         config.SizingConfig{MaxTradeValue: 100, Fraction: 1.0, MinTradeValue: 10},
			Auto:           config.SizingConfig{Fraction: 0.15, MinTradeValue: 20},
			MaxPositions:   4,
			TradeHistoryUI: 50,
		},
	}
}

func snapshotAt(price, change24h float64, at time.Time) quote.Snapshot {
	return quote.Snapshot{
		Quotes: map[string]quote.TickerQuote{
			"BTC/USDT": {Symbol: "BTC/USDT", Price: price, Change24h: change24h, Timestamp: at},
		},
		RetrievedAt: at,
	}
}

func TestEngine_AutoOpensOnBuySignal(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// 连续下跌的价格序列：第 3 轮起 RSI=0，叠加 -5% 日内跌幅 → BUY。
	prices := []float64{100, 98, 96}
	quotes := &fakeQuotes{snapshot: func(call int) (quote.Snapshot, error) {
		return snapshotAt(prices[call-1], -5, base.Add(time.Duration(call)*15*time.Second)), nil
	}}
	rec := &fakeRecorder{}
	e := NewEngine(testConfig(config.ModeAuto), quotes, rec, nil)

	if err := e.StartBot(context.Background()); err != nil {
		t.Fatalf("StartBot failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := e.Tick(context.Background()); err != nil {
			t.Fatalf("tick %d failed: %v", i, err)
		}
	}

	if len(rec.opens) != 1 {
		t.Fatalf("expected exactly one auto open, got %d", len(rec.opens))
	}
	pos := rec.opens[0]
	if pos.Symbol != "BTC/USDT" {
		t.Errorf("unexpected open symbol %s", pos.Symbol)
	}
	if pos.EntryPrice != 96 {
		t.Errorf("expected entry at third tick price 96, got %f", pos.EntryPrice)
	}
	// 1000×0.15 = 150。
	if pos.AllocatedValue != 150 {
		t.Errorf("expected auto sizing 150, got %f", pos.AllocatedValue)
	}

	state := e.Snapshot()
	if len(state.Positions) != 1 {
		t.Fatalf("expected one open position in snapshot, got %d", len(state.Positions))
	}
	if state.Balance != 850 {
		t.Errorf("expected balance 850 after open, got %f", state.Balance)
	}
}

func TestEngine_AutoSkipsTickWhenStopped(t *testing.T) {
	quotes := &fakeQuotes{snapshot: func(call int) (quote.Snapshot, error) {
		t.Fatalf("quote source must not be called while bot is stopped")
		return quote.Snapshot{}, nil
	}}
	rec := &fakeRecorder{}
	e := NewEngine(testConfig(config.ModeAuto), quotes, rec, nil)

	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("tick while stopped returned error: %v", err)
	}
	if quotes.calls != 0 {
		t.Fatalf("expected zero fetches while stopped, got %d", quotes.calls)
	}
	if len(rec.ticks) != 0 {
		t.Fatalf("skipped tick must not be journaled")
	}
}

func TestEngine_ManualModeTicksWithoutStart(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	quotes := &fakeQuotes{snapshot: func(call int) (quote.Snapshot, error) {
		return snapshotAt(100, 1, base), nil
	}}
	rec := &fakeRecorder{}
	e := NewEngine(testConfig(config.ModeManual), quotes, rec, nil)

	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("manual tick failed: %v", err)
	}
	if quotes.calls != 1 {
		t.Fatalf("manual mode must fetch every tick, got %d calls", quotes.calls)
	}
	if len(rec.ticks) != 1 {
		t.Fatalf("expected one tick snapshot journaled, got %d", len(rec.ticks))
	}
}

func TestEngine_StaleFetchDiscardedAfterReset(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var e *Engine
	quotes := &fakeQuotes{snapshot: func(call int) (quote.Snapshot, error) {
		// 拉取途中发生重置：结果必须按 epoch 丢弃。
		e.Reset(context.Background())
		return snapshotAt(100, -5, base), nil
	}}
	rec := &fakeRecorder{}
	e = NewEngine(testConfig(config.ModeManual), quotes, rec, nil)

	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("tick returned error: %v", err)
	}

	state := e.Snapshot()
	if len(state.Quotes) != 0 {
		t.Fatalf("stale quotes must be discarded, got %v", state.Quotes)
	}
	if !state.UpdatedAt.IsZero() {
		t.Fatalf("stale tick must not advance last update time")
	}
	if len(rec.ticks) != 0 {
		t.Fatalf("discarded tick must not be journaled")
	}
}

func TestEngine_FetchFailureLeavesStateUntouched(t *testing.T) {
	fetchErr := errors.New("network down")
	quotes := &fakeQuotes{snapshot: func(call int) (quote.Snapshot, error) {
		return quote.Snapshot{}, fetchErr
	}}
	rec := &fakeRecorder{}
	e := NewEngine(testConfig(config.ModeManual), quotes, rec, nil)

	if err := e.Tick(context.Background()); !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error surfaced, got %v", err)
	}
	if len(rec.errs) != 1 {
		t.Fatalf("expected fetch failure journaled as error event")
	}
	if len(rec.ticks) != 0 {
		t.Fatalf("failed tick must not produce a snapshot event")
	}
	if got := e.Snapshot(); got.Balance != 1000 {
		t.Fatalf("failed tick must not touch the account, balance=%f", got.Balance)
	}
}

func TestEngine_InvalidQuoteSkipped(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	quotes := &fakeQuotes{snapshot: func(call int) (quote.Snapshot, error) {
		return quote.Snapshot{
			Quotes: map[string]quote.TickerQuote{
				"BTC/USDT": {Symbol: "BTC/USDT", Price: 0, Change24h: -5, Timestamp: base},
			},
			RetrievedAt: base,
		}, nil
	}}
	rec := &fakeRecorder{}
	e := NewEngine(testConfig(config.ModeManual), quotes, rec, nil)

	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	state := e.Snapshot()
	if len(state.Quotes) != 0 {
		t.Fatalf("zero-price quote must be excluded from the view, got %v", state.Quotes)
	}

	if _, err := e.ManualOpen(context.Background(), "BTC/USDT"); !errors.Is(err, ErrNoQuote) {
		t.Fatalf("expected ErrNoQuote without a usable price, got %v", err)
	}
}

func TestEngine_ManualOpenAndStopLossClose(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	prices := []float64{100, 94}
	quotes := &fakeQuotes{snapshot: func(call int) (quote.Snapshot, error) {
		return snapshotAt(prices[call-1], 1, base.Add(time.Duration(call)*15*time.Second)), nil
	}}
	rec := &fakeRecorder{}
	e := NewEngine(testConfig(config.ModeManual), quotes, rec, nil)

	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("first tick failed: %v", err)
	}

	pos, err := e.ManualOpen(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("ManualOpen failed: %v", err)
	}
	if pos.EntryPrice != 100 {
		t.Errorf("expected entry at last observed price 100, got %f", pos.EntryPrice)
	}
	if pos.AllocatedValue != 100 {
		t.Errorf("expected manual cap 100, got %f", pos.AllocatedValue)
	}
	if len(rec.opens) != 1 {
		t.Fatalf("manual open must be journaled")
	}

	// 第二轮价格 94 跌破止损 95。
	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("second tick failed: %v", err)
	}
	if len(rec.closes) != 1 {
		t.Fatalf("expected stop loss close journaled, got %d", len(rec.closes))
	}
	if rec.closes[0].Reason != paper.ReasonStopLoss {
		t.Errorf("expected stop_loss close, got %s", rec.closes[0].Reason)
	}

	state := e.Snapshot()
	if len(state.Positions) != 0 {
		t.Fatalf("expected no open positions after stop loss")
	}
	if len(state.Trades) != 1 {
		t.Fatalf("expected one trade in snapshot, got %d", len(state.Trades))
	}
}

func TestEngine_ManualCloseByID(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	quotes := &fakeQuotes{snapshot: func(call int) (quote.Snapshot, error) {
		return snapshotAt(100, 1, base), nil
	}}
	rec := &fakeRecorder{}
	e := NewEngine(testConfig(config.ModeManual), quotes, rec, nil)

	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	pos, err := e.ManualOpen(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("ManualOpen failed: %v", err)
	}

	trade, err := e.ManualClose(context.Background(), pos.ID)
	if err != nil {
		t.Fatalf("ManualClose failed: %v", err)
	}
	if trade.Reason != paper.ReasonManual {
		t.Errorf("expected manual close reason, got %s", trade.Reason)
	}
	if len(rec.closes) != 1 {
		t.Fatalf("manual close must be journaled")
	}

	if _, err := e.ManualClose(context.Background(), pos.ID); !errors.Is(err, paper.ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound on second close, got %v", err)
	}
}

func TestEngine_ModeGates(t *testing.T) {
	quotes := &fakeQuotes{snapshot: func(call int) (quote.Snapshot, error) {
		return quote.Snapshot{}, nil
	}}

	manual := NewEngine(testConfig(config.ModeManual), quotes, &fakeRecorder{}, nil)
	if err := manual.StartBot(context.Background()); !errors.Is(err, ErrAutoOnly) {
		t.Fatalf("expected ErrAutoOnly for StartBot in manual mode, got %v", err)
	}
	if err := manual.StopBot(context.Background()); !errors.Is(err, ErrAutoOnly) {
		t.Fatalf("expected ErrAutoOnly for StopBot in manual mode, got %v", err)
	}

	auto := NewEngine(testConfig(config.ModeAuto), quotes, &fakeRecorder{}, nil)
	if _, err := auto.ManualOpen(context.Background(), "BTC/USDT"); !errors.Is(err, ErrManualOnly) {
		t.Fatalf("expected ErrManualOnly for ManualOpen in auto mode, got %v", err)
	}
}

func TestEngine_StopKeepsPositionsOpen(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	prices := []float64{100, 98, 96}
	quotes := &fakeQuotes{snapshot: func(call int) (quote.Snapshot, error) {
		return snapshotAt(prices[call-1], -5, base.Add(time.Duration(call)*15*time.Second)), nil
	}}
	rec := &fakeRecorder{}
	e := NewEngine(testConfig(config.ModeAuto), quotes, rec, nil)

	if err := e.StartBot(context.Background()); err != nil {
		t.Fatalf("StartBot failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := e.Tick(context.Background()); err != nil {
			t.Fatalf("tick %d failed: %v", i, err)
		}
	}
	if len(rec.opens) != 1 {
		t.Fatalf("expected one auto open, got %d", len(rec.opens))
	}

	if err := e.StopBot(context.Background()); err != nil {
		t.Fatalf("StopBot failed: %v", err)
	}

	state := e.Snapshot()
	if state.Running {
		t.Errorf("expected running=false after stop")
	}
	if len(state.Positions) != 1 {
		t.Fatalf("stop must keep existing positions open, got %d", len(state.Positions))
	}

	// 停止后不再产生新的一轮处理。
	fetches := quotes.calls
	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("tick after stop returned error: %v", err)
	}
	if quotes.calls != fetches {
		t.Fatalf("expected no fetch after stop")
	}
}

func TestEngine_ResetRestoresInitialState(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	quotes := &fakeQuotes{snapshot: func(call int) (quote.Snapshot, error) {
		return snapshotAt(100, 1, base), nil
	}}
	rec := &fakeRecorder{}
	e := NewEngine(testConfig(config.ModeManual), quotes, rec, nil)

	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if _, err := e.ManualOpen(context.Background(), "BTC/USDT"); err != nil {
		t.Fatalf("ManualOpen failed: %v", err)
	}

	e.Reset(context.Background())

	state := e.Snapshot()
	if state.Balance != 1000 {
		t.Errorf("expected initial balance restored, got %f", state.Balance)
	}
	if len(state.Positions) != 0 || len(state.Trades) != 0 || len(state.Quotes) != 0 {
		t.Errorf("expected empty positions/trades/quotes after reset")
	}
	if state.Running {
		t.Errorf("expected running=false after reset")
	}
	if rec.botStates[len(rec.botStates)-1] != "reset" {
		t.Errorf("reset must be journaled as bot state event")
	}
}
