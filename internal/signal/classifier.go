package signal

// Signal 表示信号引擎对单个交易对的判定。
type Signal string

const (
	Buy  Signal = "BUY"
	Sell Signal = "SELL"
	Hold Signal = "HOLD"
)

// Thresholds 定义信号判定阈值。
type Thresholds struct {
	RSIBuy    float64 // RSI 低于该值才可能 BUY
	RSISell   float64 // RSI 高于该值触发 SELL
	MinDipPct float64 // 24小时跌幅需低于该值（负数）才确认 BUY
}

// DefaultThresholds 返回默认阈值：RSI<35 且 24h 跌幅超过 3% 买入，RSI>70 卖出。
func DefaultThresholds() Thresholds {
	return Thresholds{
		RSIBuy:    35,
		RSISell:   70,
		MinDipPct: -3,
	}
}

// Classify 根据 RSI 与24小时涨跌幅给出交易信号。纯函数，无副作用。
//
// BUY 需要超卖与真实下跌同时成立：仅 RSI 超卖不足以触发买入。
// SELL 仅看 RSI 超买，与价格变化无关。
// BUY 分支先于 SELL 判定；两个条件在数值上不会同时满足，
// 但判定顺序保持固定以保证确定性。
func Classify(rsi, change24h float64, t Thresholds) Signal {
	if rsi < t.RSIBuy && change24h < t.MinDipPct {
		return Buy
	}
	if rsi > t.RSISell {
		return Sell
	}
	return Hold
}
