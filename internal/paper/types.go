package paper

import (
	"errors"
	"time"
)

// ExitReason 为平仓原因的封闭枚举。
type ExitReason string

const (
	ReasonStopLoss   ExitReason = "stop_loss"
	ReasonTakeProfit ExitReason = "take_profit"
	ReasonSignal     ExitReason = "signal"
	ReasonManual     ExitReason = "manual"
)

// TradeResult 标记一笔交易的胜负。
type TradeResult string

const (
	ResultWin  TradeResult = "WIN"
	ResultLoss TradeResult = "LOSS"
)

// 开仓被拒绝时返回的哨兵错误。拒绝不是故障：调用方记录日志后继续本轮。
var (
	ErrInsufficientBalance = errors.New("paper: 可用余额不足以满足最小开仓额")
	ErrPositionExists      = errors.New("paper: 该交易对已存在未平仓头寸")
	ErrMaxPositions        = errors.New("paper: 已达到最大持仓数量")
	ErrPositionNotFound    = errors.New("paper: 未找到对应头寸")
	ErrInvalidPrice        = errors.New("paper: 无效的市场价格")
)

// SizingPolicy 控制单笔开仓的规模。
// MaxTradeValue<=0 表示无固定上限，仅按余额比例计算；
// MaxPositions<=0 表示不限制持仓数量。
type SizingPolicy struct {
	MaxTradeValue float64
	Fraction      float64
	MinTradeValue float64
	MaxPositions  int
}

// Size 按 min(固定上限, 余额×比例) 计算开仓金额。
func (p SizingPolicy) Size(available float64) float64 {
	size := available * p.Fraction
	if p.MaxTradeValue > 0 && size > p.MaxTradeValue {
		size = p.MaxTradeValue
	}
	return size
}

// Position 表示一笔未平仓的模拟交易。
// 开仓时刻确定的字段（数量、止损、止盈）此后不再变化，
// 每轮只重算标记价与浮动盈亏。
type Position struct {
	ID             string
	Symbol         string
	EntryPrice     float64 // USD
	Quantity       float64
	AllocatedValue float64 // 账户货币
	StopLoss       float64 // USD
	TakeProfit     float64 // USD
	OpenedAt       time.Time

	// 标记信息，每轮更新。
	MarkPrice        float64
	UnrealizedPnL    float64 // 账户货币
	UnrealizedPnLPct float64
}

// Trade 为平仓时生成的不可变历史记录。
type Trade struct {
	ID             string      `json:"id"`
	Symbol         string      `json:"symbol"`
	EntryPrice     float64     `json:"entry_price"`
	ExitPrice      float64     `json:"exit_price"`
	Quantity       float64     `json:"quantity"`
	AllocatedValue float64     `json:"allocated_value"`
	PnL            float64     `json:"pnl"`
	PnLPercent     float64     `json:"pnl_percent"`
	Reason         ExitReason  `json:"reason"`
	Result         TradeResult `json:"result"`
	OpenedAt       time.Time   `json:"opened_at"`
	ClosedAt       time.Time   `json:"closed_at"`
}
