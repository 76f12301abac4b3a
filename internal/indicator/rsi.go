package indicator

// DefaultRSIPeriod 为经典的14周期。
const DefaultRSIPeriod = 14

const (
	// NeutralRSI 在历史数据不足时返回，属于约定的退化取值而非错误。
	NeutralRSI = 50.0
	// MaxRSI 在窗口内没有任何下跌时返回。
	MaxRSI = 100.0
)

// RSI 基于最近 period 个价格差计算相对强弱指数，取值范围 [0,100]。
//
// 注意这里对涨跌幅取简单算术平均，而不是 Wilder 的平滑递推：
// 每次都在最近 period 个差值上重新求均值，结果只依赖传入的序列。
// 历史不足 period+1 个观测时返回中性值 50。
func RSI(prices []float64, period int) float64 {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if len(prices) < period+1 {
		return NeutralRSI
	}

	var gains, losses float64
	start := len(prices) - period
	for i := start; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses += -delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return MaxRSI
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
