package monitor

import (
	"time"

	"paper-trader/internal/paper"
	"paper-trader/internal/quote"
	"paper-trader/internal/signal"
)

// EventType 表示监控事件类型。
type EventType string

const (
	EventTickSnapshot    EventType = "tick_snapshot"
	EventPositionOpened  EventType = "position_opened"
	EventPositionClosed  EventType = "position_closed"
	EventPolicyRejection EventType = "policy_rejection"
	EventBotState        EventType = "bot_state"
	EventError           EventType = "error"
)

// Event 封装通用监控事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TokenQuote 记录一轮处理后单个交易对的行情与信号。
type TokenQuote struct {
	Symbol    string        `json:"symbol"`
	Price     float64       `json:"price"`
	Change24h float64       `json:"change_24h"`
	RSI       float64       `json:"rsi"`
	Signal    signal.Signal `json:"signal"`
}

// TickSnapshotPayload 记录一轮行情与账户概览。
type TickSnapshotPayload struct {
	Quotes        []TokenQuote `json:"quotes"`
	Balance       float64      `json:"balance"`
	Equity        float64      `json:"equity"`
	OpenPositions int          `json:"open_positions"`
	RetrievedAt   time.Time    `json:"retrieved_at"`
}

// PositionOpenedPayload 记录开仓。
type PositionOpenedPayload struct {
	Position paper.Position `json:"position"`
	Quote    quote.TickerQuote `json:"quote"`
}

// PositionClosedPayload 记录平仓成交。
type PositionClosedPayload struct {
	Trade paper.Trade `json:"trade"`
}

// PolicyRejectionPayload 记录被策略拒绝的开仓请求。
type PolicyRejectionPayload struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// BotStatePayload 记录运行状态变更。
type BotStatePayload struct {
	Running bool   `json:"running"`
	Action  string `json:"action"` // start | stop | reset
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
