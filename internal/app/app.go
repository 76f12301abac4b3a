package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"paper-trader/internal/config"
	"paper-trader/internal/monitor"
	"paper-trader/internal/quote"
	"paper-trader/internal/store"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 组装行情客户端、监控服务与交易引擎，并以固定间隔驱动主循环。
// 定时器只在前一轮返回后才会再次触发，两轮处理绝不重叠。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("模拟交易系统已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("provider", a.cfg.Provider.Name),
		zap.String("mode", a.cfg.Trading.Mode),
		zap.Strings("symbols", a.cfg.Provider.Symbols),
	)

	client, err := quote.NewClient(a.cfg.Provider, a.logger)
	if err != nil {
		return fmt.Errorf("初始化行情客户端失败: %w", err)
	}
	quoteSvc := quote.NewService(client, a.logger)

	monitorSvc, err := monitor.NewService(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("初始化监控服务失败: %w", err)
	}

	engine := NewEngine(a.cfg, quoteSvc, monitorSvc, a.logger)

	// 手动模式下引擎无条件处理每一轮；自动模式等待 startBot。
	if a.cfg.Trading.Mode == config.ModeAuto {
		a.logger.Info("自动模式：等待启动指令后才开始交易")
	}

	if a.cfg.Monitor.Enabled {
		if err := startControlServer(ctx, engine, monitorSvc, a.cfg.Monitor.Port, a.logger); err != nil {
			return fmt.Errorf("启动控制接口失败: %w", err)
		}
	}

	tickInterval := a.cfg.Scheduler.TickInterval
	if tickInterval <= 0 {
		tickInterval = 15 * time.Second
	}

	if err = engine.Tick(ctx); err != nil {
		a.logger.Error("首轮处理失败", zap.Error(err))
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("系统异常退出: %w", err)
			}
			a.logger.Info("系统收到退出信号，正在停止")
			return nil
		case <-ticker.C:
			if err = engine.Tick(ctx); err != nil {
				a.logger.Error("执行调度失败", zap.Error(err))
			}
		}
	}
}
