package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"paper-trader/internal/config"
	"paper-trader/internal/history"
	"paper-trader/internal/indicator"
	"paper-trader/internal/monitor"
	"paper-trader/internal/paper"
	"paper-trader/internal/quote"
	"paper-trader/internal/signal"
)

var (
	// ErrManualOnly 表示该操作仅在手动模式下可用。
	ErrManualOnly = errors.New("app: 该操作仅在手动模式下可用")
	// ErrAutoOnly 表示该操作仅在自动模式下可用。
	ErrAutoOnly = errors.New("app: 该操作仅在自动模式下可用")
	// ErrNoQuote 表示当前没有该交易对的可用行情。
	ErrNoQuote = errors.New("app: 暂无该交易对的可用行情")
)

type quoteSource interface {
	GetSnapshot(ctx context.Context, symbols []string) (quote.Snapshot, error)
}

type eventRecorder interface {
	RecordTick(ctx context.Context, payload monitor.TickSnapshotPayload)
	RecordOpen(ctx context.Context, pos paper.Position, q quote.TickerQuote)
	RecordClose(ctx context.Context, trade paper.Trade)
	RecordRejection(ctx context.Context, symbol string, reason error)
	RecordBotState(ctx context.Context, running bool, action string)
	RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{})
}

// RenderState 为渲染层消费的只读快照，由核心每轮产出，核心本身不做任何渲染。
type RenderState struct {
	Balance       float64              `json:"balance"`
	Equity        float64              `json:"equity"`
	RealizedPnL   float64              `json:"realized_pnl"`
	UnrealizedPnL float64              `json:"unrealized_pnl"`
	Quotes        []monitor.TokenQuote `json:"quotes"`
	Positions     []paper.Position     `json:"positions"`
	Trades        []paper.Trade        `json:"trades"`
	Mode          string               `json:"mode"`
	Running       bool                 `json:"running"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Engine 驱动模拟交易的一轮处理：拉取行情 → 更新历史 → 计算指标 →
// 分类信号 → 管理仓位。除行情拉取外全程在锁内同步完成，
// 两轮处理绝不并发。
type Engine struct {
	trading    config.TradingConfig
	symbols    []string
	quotes     quoteSource
	recorder   eventRecorder
	logger     *zap.Logger
	thresholds signal.Thresholds
	manual     paper.SizingPolicy
	auto       paper.SizingPolicy

	mu         sync.Mutex
	account    *paper.Account
	priceStore *history.Store
	running    bool
	epoch      uint64
	quotesView []monitor.TokenQuote
	lastTick   time.Time
}

// NewEngine 创建交易引擎。
func NewEngine(cfg *config.Config, quotes quoteSource, recorder eventRecorder, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	account := paper.NewAccount(paper.Options{
		InitialBalance: cfg.Trading.InitialBalance,
		FxRate:         cfg.Trading.FxRate,
		StopLossPct:    cfg.Trading.StopLossPct,
		TakeProfitPct:  cfg.Trading.TakeProfitPct,
	}, logger)

	return &Engine{
		trading:  cfg.Trading,
		symbols:  cfg.Provider.Symbols,
		quotes:   quotes,
		recorder: recorder,
		logger:   logger,
		thresholds: signal.Thresholds{
			RSIBuy:    cfg.Trading.RSIBuy,
			RSISell:   cfg.Trading.RSISell,
			MinDipPct: cfg.Trading.MinDipPct,
		},
		manual: paper.SizingPolicy{
			MaxTradeValue: cfg.Trading.Manual.MaxTradeValue,
			Fraction:      cfg.Trading.Manual.Fraction,
			MinTradeValue: cfg.Trading.Manual.MinTradeValue,
		},
		auto: paper.SizingPolicy{
			MaxTradeValue: cfg.Trading.Auto.MaxTradeValue,
			Fraction:      cfg.Trading.Auto.Fraction,
			MinTradeValue: cfg.Trading.Auto.MinTradeValue,
			MaxPositions:  cfg.Trading.MaxPositions,
		},
		account:    account,
		priceStore: history.NewStore(cfg.Trading.HistoryWindow),
	}
}

// Tick 执行一轮完整处理。行情拉取是唯一的挂起点；
// 拉取期间发生 Reset/Stop 会使 epoch 前进，迟到的结果按 epoch 丢弃。
// 拉取失败记录日志后跳过本轮，不改动任何状态。
func (e *Engine) Tick(ctx context.Context) error {
	e.mu.Lock()
	if e.trading.Mode == config.ModeAuto && !e.running {
		e.mu.Unlock()
		return nil
	}
	epoch := e.epoch
	e.mu.Unlock()

	snapshot, err := e.quotes.GetSnapshot(ctx, e.symbols)
	if err != nil {
		e.logger.Warn("行情快照拉取失败，跳过本轮", zap.Error(err))
		e.recorder.RecordError(ctx, "行情快照拉取失败", err, nil)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.epoch != epoch {
		e.logger.Debug("丢弃过期行情结果",
			zap.Uint64("fetched_epoch", epoch),
			zap.Uint64("current_epoch", e.epoch),
		)
		return nil
	}

	now := snapshot.RetrievedAt
	autoExit := e.trading.Mode == config.ModeAuto
	quotesView := make([]monitor.TokenQuote, 0, len(e.symbols))

	for _, symbol := range e.symbols {
		q, ok := snapshot.Quotes[symbol]
		if !ok || !q.Valid() {
			// 缺失或价格为0的交易对本轮既不产生信号也不可交易。
			continue
		}

		e.priceStore.Record(symbol, q.Price)
		rsi := indicator.RSI(e.priceStore.Get(symbol), e.trading.RSIPeriod)
		sig := signal.Classify(rsi, q.Change24h, e.thresholds)

		quotesView = append(quotesView, monitor.TokenQuote{
			Symbol:    symbol,
			Price:     q.Price,
			Change24h: q.Change24h,
			RSI:       rsi,
			Signal:    sig,
		})

		if trade := e.account.MarkAndCheck(symbol, q.Price, sig, autoExit, now); trade != nil {
			e.recorder.RecordClose(ctx, *trade)
			continue
		}

		if autoExit && sig == signal.Buy && !e.account.HasPosition(symbol) {
			pos, openErr := e.account.Open(symbol, q.Price, e.auto, now)
			if openErr != nil {
				e.recorder.RecordRejection(ctx, symbol, openErr)
				continue
			}
			e.recorder.RecordOpen(ctx, *pos, q)
		}
	}

	e.quotesView = quotesView
	e.lastTick = now

	e.recorder.RecordTick(ctx, monitor.TickSnapshotPayload{
		Quotes:        quotesView,
		Balance:       e.account.Balance(),
		Equity:        e.account.Equity(),
		OpenPositions: e.account.OpenPositionCount(),
		RetrievedAt:   now,
	})

	return nil
}

// StartBot 启动自动交易。仅自动模式可用。
func (e *Engine) StartBot(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.trading.Mode != config.ModeAuto {
		return ErrAutoOnly
	}
	if e.running {
		return nil
	}
	e.running = true
	e.logger.Info("自动交易已启动")
	e.recorder.RecordBotState(ctx, true, "start")
	return nil
}

// StopBot 停止自动交易：不再产生新的一轮处理，已有头寸保持打开。
// epoch 前进以丢弃正在途中的行情结果。
func (e *Engine) StopBot(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.trading.Mode != config.ModeAuto {
		return ErrAutoOnly
	}
	if !e.running {
		return nil
	}
	e.running = false
	e.epoch++
	e.logger.Info("自动交易已停止，现有头寸保持打开")
	e.recorder.RecordBotState(ctx, false, "stop")
	return nil
}

// ManualOpen 按手动规模策略对指定交易对开仓，使用最近一轮观测到的价格。
// 拒绝原因（余额不足、头寸已存在等）直接返回给调用方。
func (e *Engine) ManualOpen(ctx context.Context, symbol string) (*paper.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.trading.Mode != config.ModeManual {
		return nil, ErrManualOnly
	}

	var current *monitor.TokenQuote
	for i := range e.quotesView {
		if e.quotesView[i].Symbol == symbol {
			current = &e.quotesView[i]
			break
		}
	}
	if current == nil || current.Price <= 0 {
		return nil, ErrNoQuote
	}

	pos, err := e.account.Open(symbol, current.Price, e.manual, time.Now().UTC())
	if err != nil {
		e.recorder.RecordRejection(ctx, symbol, err)
		return nil, err
	}

	e.recorder.RecordOpen(ctx, *pos, quote.TickerQuote{
		Symbol:    symbol,
		Price:     current.Price,
		Change24h: current.Change24h,
		Timestamp: e.lastTick,
	})

	return pos, nil
}

// ManualClose 按头寸标识平仓，使用最近一次标记价结算。
func (e *Engine) ManualClose(ctx context.Context, id string) (*paper.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	trade, err := e.account.CloseByID(id, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	e.recorder.RecordClose(ctx, *trade)
	return trade, nil
}

// Reset 将整个模拟状态恢复到初始：余额复位，头寸、成交与价格历史清空，
// 自动交易停止。epoch 前进以丢弃正在途中的行情结果。
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.epoch++
	e.running = false
	e.account.Reset()
	e.priceStore.Reset()
	e.quotesView = nil
	e.lastTick = time.Time{}

	e.logger.Info("模拟状态已重置")
	e.recorder.RecordBotState(ctx, false, "reset")
}

// Snapshot 返回当前的只读渲染快照。
func (e *Engine) Snapshot() RenderState {
	e.mu.Lock()
	defer e.mu.Unlock()

	quotes := make([]monitor.TokenQuote, len(e.quotesView))
	copy(quotes, e.quotesView)

	return RenderState{
		Balance:       e.account.Balance(),
		Equity:        e.account.Equity(),
		RealizedPnL:   e.account.RealizedPnL(),
		UnrealizedPnL: e.account.UnrealizedPnL(),
		Quotes:        quotes,
		Positions:     e.account.Positions(),
		Trades:        e.account.Trades(e.trading.TradeHistoryUI),
		Mode:          e.trading.Mode,
		Running:       e.running,
		UpdatedAt:     e.lastTick,
	}
}
