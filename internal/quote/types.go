package quote

import "time"

// TickerQuote 表示单个交易对的最新行情。
type TickerQuote struct {
	Symbol    string
	Price     float64 // USD 最新成交价
	Change24h float64 // 24小时涨跌幅（百分比）
	Timestamp time.Time
}

// Snapshot 为一次轮询得到的行情快照。
type Snapshot struct {
	Quotes      map[string]TickerQuote
	RetrievedAt time.Time
}

// Valid 判断行情是否可用于交易。价格缺失或为0的交易对本轮不参与信号与开仓。
func (q TickerQuote) Valid() bool {
	return q.Price > 0
}
