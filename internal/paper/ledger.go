package paper

// Ledger 维护账户现金余额，是余额的唯一事实来源。
// 只有 Account 可以调用 Debit/Credit；Debit 的额度由调用方的
// 规模计算保证不超过当前余额，Ledger 本身信任调用方。
type Ledger struct {
	balance float64
}

// NewLedger 以初始余额创建账本。
func NewLedger(initial float64) *Ledger {
	return &Ledger{balance: initial}
}

// Debit 扣减余额。
func (l *Ledger) Debit(amount float64) {
	l.balance -= amount
}

// Credit 增加余额。
func (l *Ledger) Credit(amount float64) {
	l.balance += amount
}

// Balance 返回当前余额。
func (l *Ledger) Balance() float64 {
	return l.balance
}
