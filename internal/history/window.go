package history

// Window 为单个交易对的有界价格序列，基于固定容量环形缓冲实现。
// 写满后新价格覆盖最旧的观测（FIFO），容量之外不再分配内存。
type Window struct {
	prices []float64
	head   int
	length int
}

// NewWindow 创建容量为 capacity 的滚动窗口。
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{
		prices: make([]float64, capacity),
	}
}

// Append 记录最新价格，超出容量时淘汰最旧的一条。
func (w *Window) Append(price float64) {
	idx := (w.head + w.length) % len(w.prices)
	w.prices[idx] = price
	if w.length < len(w.prices) {
		w.length++
		return
	}
	w.head = (w.head + 1) % len(w.prices)
}

// Len 返回当前观测数量。
func (w *Window) Len() int {
	return w.length
}

// Values 按时间升序返回全部观测（最旧在前）。
func (w *Window) Values() []float64 {
	out := make([]float64, w.length)
	for i := 0; i < w.length; i++ {
		out[i] = w.prices[(w.head+i)%len(w.prices)]
	}
	return out
}

// Store 维护每个交易对的滚动价格历史，首次观测时惰性创建窗口。
type Store struct {
	capacity int
	windows  map[string]*Window
}

// NewStore 创建历史仓库，capacity 为每个交易对保留的最大观测数。
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 50
	}
	return &Store{
		capacity: capacity,
		windows:  make(map[string]*Window),
	}
}

// Record 追加一条价格观测。
func (s *Store) Record(symbol string, price float64) {
	w, ok := s.windows[symbol]
	if !ok {
		w = NewWindow(s.capacity)
		s.windows[symbol] = w
	}
	w.Append(price)
}

// Get 返回交易对的历史价格，升序排列；未知交易对返回空序列。
func (s *Store) Get(symbol string) []float64 {
	w, ok := s.windows[symbol]
	if !ok {
		return nil
	}
	return w.Values()
}

// Len 返回交易对当前的观测数量。
func (s *Store) Len(symbol string) int {
	w, ok := s.windows[symbol]
	if !ok {
		return 0
	}
	return w.Len()
}

// Reset 清空全部历史。
func (s *Store) Reset() {
	s.windows = make(map[string]*Window)
}
