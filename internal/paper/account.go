package paper

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"paper-trader/internal/signal"
)

// Account 聚合账本、未平仓头寸与成交历史，
// 是仓位生命周期的唯一所有者：开仓、每轮标记、平仓都经由它完成。
type Account struct {
	ledger         *Ledger
	positions      map[string]*Position
	trades         []Trade
	initialBalance float64
	fxRate         float64
	stopLossPct    float64
	takeProfitPct  float64
	logger         *zap.Logger
}

// Options 控制账户的固定参数。
type Options struct {
	InitialBalance float64
	FxRate         float64 // USD → 账户货币的固定换算率
	StopLossPct    float64
	TakeProfitPct  float64
}

// NewAccount 创建模拟账户。
func NewAccount(opts Options, logger *zap.Logger) *Account {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.InitialBalance <= 0 {
		opts.InitialBalance = 1000
	}
	if opts.FxRate <= 0 {
		opts.FxRate = 1
	}
	return &Account{
		ledger:         NewLedger(opts.InitialBalance),
		positions:      make(map[string]*Position),
		initialBalance: opts.InitialBalance,
		fxRate:         opts.FxRate,
		stopLossPct:    opts.StopLossPct,
		takeProfitPct:  opts.TakeProfitPct,
		logger:         logger,
	}
}

// Open 按给定规模策略开仓。所有拒绝都是无副作用的 no-op，
// 通过哨兵错误告知调用方，不会中断本轮处理。
func (a *Account) Open(symbol string, price float64, policy SizingPolicy, now time.Time) (*Position, error) {
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	if _, exists := a.positions[symbol]; exists {
		a.logger.Debug("开仓被拒绝：头寸已存在", zap.String("symbol", symbol))
		return nil, ErrPositionExists
	}
	if policy.MaxPositions > 0 && len(a.positions) >= policy.MaxPositions {
		a.logger.Debug("开仓被拒绝：持仓数量已达上限",
			zap.String("symbol", symbol),
			zap.Int("max_positions", policy.MaxPositions),
		)
		return nil, ErrMaxPositions
	}

	size := policy.Size(a.ledger.Balance())
	if size < policy.MinTradeValue {
		a.logger.Debug("开仓被拒绝：可用余额不足",
			zap.String("symbol", symbol),
			zap.Float64("size", size),
			zap.Float64("min_trade_value", policy.MinTradeValue),
		)
		return nil, ErrInsufficientBalance
	}

	a.ledger.Debit(size)

	pos := &Position{
		ID:             newID(now),
		Symbol:         symbol,
		EntryPrice:     price,
		Quantity:       size / price,
		AllocatedValue: size,
		StopLoss:       price * (1 - a.stopLossPct),
		TakeProfit:     price * (1 + a.takeProfitPct),
		OpenedAt:       now.UTC(),
		MarkPrice:      price,
	}
	a.positions[symbol] = pos

	a.logger.Info("开仓成功",
		zap.String("symbol", symbol),
		zap.String("position_id", pos.ID),
		zap.Float64("entry_price", price),
		zap.Float64("allocated", size),
		zap.Float64("stop_loss", pos.StopLoss),
		zap.Float64("take_profit", pos.TakeProfit),
	)

	return pos, nil
}

// MarkAndCheck 用最新价格重算浮动盈亏，并按固定优先级检查退出条件：
// 止损 → 止盈 →（允许信号退出时）SELL 信号且有浮盈。
// 止损严格先于止盈：若一轮内价格同时跨越两个阈值，以止损为准。
// 亏损头寸绝不因信号平仓，只有止损/止盈可以终结亏损。
// 返回平仓生成的成交记录；头寸保持打开时返回 nil。
func (a *Account) MarkAndCheck(symbol string, price float64, sig signal.Signal, allowSignalExit bool, now time.Time) *Trade {
	pos, ok := a.positions[symbol]
	if !ok || price <= 0 {
		return nil
	}

	pos.MarkPrice = price
	pos.UnrealizedPnL = (price - pos.EntryPrice) * pos.Quantity * a.fxRate
	if pos.AllocatedValue > 0 {
		pos.UnrealizedPnLPct = pos.UnrealizedPnL / pos.AllocatedValue * 100
	}

	switch {
	case price <= pos.StopLoss:
		return a.close(pos, price, ReasonStopLoss, now)
	case price >= pos.TakeProfit:
		return a.close(pos, price, ReasonTakeProfit, now)
	case allowSignalExit && sig == signal.Sell && pos.UnrealizedPnL > 0:
		return a.close(pos, price, ReasonSignal, now)
	}

	return nil
}

// CloseByID 按头寸标识手动平仓。
func (a *Account) CloseByID(id string, now time.Time) (*Trade, error) {
	for _, pos := range a.positions {
		if pos.ID == id {
			if pos.MarkPrice <= 0 {
				return nil, ErrInvalidPrice
			}
			return a.close(pos, pos.MarkPrice, ReasonManual, now), nil
		}
	}
	return nil, ErrPositionNotFound
}

// close 结算一笔头寸：按固定汇率折算已实现盈亏，
// 将占用资金与盈亏一并记回账本，生成不可变成交记录并移除头寸。
// 同一头寸在一轮内只会被结算一次（结算即从未平仓集合中删除）。
func (a *Account) close(pos *Position, exitPrice float64, reason ExitReason, now time.Time) *Trade {
	pnl := (exitPrice - pos.EntryPrice) * pos.Quantity * a.fxRate
	pnlPercent := 0.0
	if pos.AllocatedValue > 0 {
		pnlPercent = pnl / pos.AllocatedValue * 100
	}

	a.ledger.Credit(pos.AllocatedValue + pnl)

	result := ResultWin
	if pnl < 0 {
		result = ResultLoss
	}

	trade := Trade{
		ID:             pos.ID,
		Symbol:         pos.Symbol,
		EntryPrice:     pos.EntryPrice,
		ExitPrice:      exitPrice,
		Quantity:       pos.Quantity,
		AllocatedValue: pos.AllocatedValue,
		PnL:            pnl,
		PnLPercent:     pnlPercent,
		Reason:         reason,
		Result:         result,
		OpenedAt:       pos.OpenedAt,
		ClosedAt:       now.UTC(),
	}

	// 最新成交排在最前。
	a.trades = append([]Trade{trade}, a.trades...)
	delete(a.positions, pos.Symbol)

	a.logger.Info("平仓完成",
		zap.String("symbol", trade.Symbol),
		zap.String("position_id", trade.ID),
		zap.String("reason", string(reason)),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("pnl", pnl),
		zap.String("result", string(result)),
	)

	return &trade
}

// Reset 将账户恢复到初始状态：余额复位，头寸与成交历史清空。
func (a *Account) Reset() {
	a.ledger = NewLedger(a.initialBalance)
	a.positions = make(map[string]*Position)
	a.trades = nil
}

// Balance 返回当前现金余额。
func (a *Account) Balance() float64 {
	return a.ledger.Balance()
}

// OpenPositionCount 返回未平仓头寸数量。
func (a *Account) OpenPositionCount() int {
	return len(a.positions)
}

// HasPosition 判断交易对是否已有未平仓头寸。
func (a *Account) HasPosition(symbol string) bool {
	_, ok := a.positions[symbol]
	return ok
}

// Positions 返回未平仓头寸的副本，按开仓时间升序。
func (a *Account) Positions() []Position {
	out := make([]Position, 0, len(a.positions))
	for _, pos := range a.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Trades 返回最近的成交记录（最新在前），limit<=0 时返回全部。
func (a *Account) Trades(limit int) []Trade {
	if limit <= 0 || limit > len(a.trades) {
		limit = len(a.trades)
	}
	out := make([]Trade, limit)
	copy(out, a.trades[:limit])
	return out
}

// RealizedPnL 返回累计已实现盈亏。
func (a *Account) RealizedPnL() float64 {
	var total float64
	for _, t := range a.trades {
		total += t.PnL
	}
	return total
}

// UnrealizedPnL 返回全部未平仓头寸的浮动盈亏之和。
func (a *Account) UnrealizedPnL() float64 {
	var total float64
	for _, pos := range a.positions {
		total += pos.UnrealizedPnL
	}
	return total
}

// Equity 返回账户总值：现金 + 占用资金 + 浮动盈亏。
func (a *Account) Equity() float64 {
	total := a.ledger.Balance()
	for _, pos := range a.positions {
		total += pos.AllocatedValue + pos.UnrealizedPnL
	}
	return total
}
