package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// 运行模式常量。
const (
	ModeManual = "manual"
	ModeAuto   = "auto"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ProviderConfig 描述行情数据源连接信息。
type ProviderConfig struct {
	Name       string      `mapstructure:"name"`
	Symbols    []string    `mapstructure:"symbols"`
	UseSandbox bool        `mapstructure:"use_sandbox"`
	Retry      RetryConfig `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// TradingConfig 管理模拟交易参数。
type TradingConfig struct {
	Mode           string       `mapstructure:"mode"`
	InitialBalance float64      `mapstructure:"initial_balance"`
	FxRate         float64      `mapstructure:"fx_rate"`
	HistoryWindow  int          `mapstructure:"history_window"`
	RSIPeriod      int          `mapstructure:"rsi_period"`
	RSIBuy         float64      `mapstructure:"rsi_buy"`
	RSISell        float64      `mapstructure:"rsi_sell"`
	MinDipPct      float64      `mapstructure:"min_dip_pct"`
	StopLossPct    float64      `mapstructure:"stop_loss_pct"`
	TakeProfitPct  float64      `mapstructure:"take_profit_pct"`
	Manual         SizingConfig `mapstructure:"manual"`
	Auto           SizingConfig `mapstructure:"auto"`
	MaxPositions   int          `mapstructure:"max_positions"`
	TradeHistoryUI int          `mapstructure:"trade_history_ui"`
}

// SizingConfig 控制单笔开仓的规模策略。
type SizingConfig struct {
	MaxTradeValue float64 `mapstructure:"max_trade_value"`
	Fraction      float64 `mapstructure:"fraction"`
	MinTradeValue float64 `mapstructure:"min_trade_value"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// SchedulerConfig 控制主循环节奏。
type SchedulerConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// MonitorConfig 控制监控与操作接口。
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Provider.Name == "" {
		err = multierr.Append(err, errors.New("provider.name 不能为空"))
	}
	if len(c.Provider.Symbols) == 0 {
		err = multierr.Append(err, errors.New("provider.symbols 至少包含一个交易对"))
	}
	if c.Provider.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("provider.retry.max_attempts 必须大于0"))
	}
	if c.Provider.Retry.MinDelay <= 0 || c.Provider.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("provider.retry.delay 必须为正"))
	}
	if c.Provider.Retry.MinDelay > c.Provider.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("provider.retry.min_delay 不能大于 max_delay"))
	}
	if c.Trading.Mode != ModeManual && c.Trading.Mode != ModeAuto {
		err = multierr.Append(err, fmt.Errorf("trading.mode 取值非法: %q", c.Trading.Mode))
	}
	if c.Trading.InitialBalance <= 0 {
		err = multierr.Append(err, errors.New("trading.initial_balance 必须大于0"))
	}
	if c.Trading.FxRate <= 0 {
		err = multierr.Append(err, errors.New("trading.fx_rate 必须大于0"))
	}
	if c.Trading.HistoryWindow <= 1 {
		err = multierr.Append(err, errors.New("trading.history_window 必须大于1"))
	}
	if c.Trading.RSIPeriod <= 0 {
		err = multierr.Append(err, errors.New("trading.rsi_period 必须大于0"))
	}
	if c.Trading.HistoryWindow <= c.Trading.RSIPeriod {
		err = multierr.Append(err, errors.New("trading.history_window 必须大于 rsi_period"))
	}
	if c.Trading.RSIBuy <= 0 || c.Trading.RSIBuy >= 100 {
		err = multierr.Append(err, errors.New("trading.rsi_buy 必须位于(0,100)"))
	}
	if c.Trading.RSISell <= 0 || c.Trading.RSISell >= 100 {
		err = multierr.Append(err, errors.New("trading.rsi_sell 必须位于(0,100)"))
	}
	if c.Trading.RSIBuy >= c.Trading.RSISell {
		err = multierr.Append(err, errors.New("trading.rsi_buy 必须小于 rsi_sell"))
	}
	if c.Trading.MinDipPct >= 0 {
		err = multierr.Append(err, errors.New("trading.min_dip_pct 必须为负"))
	}
	if c.Trading.StopLossPct <= 0 || c.Trading.StopLossPct >= 1 {
		err = multierr.Append(err, errors.New("trading.stop_loss_pct 必须位于(0,1)"))
	}
	if c.Trading.TakeProfitPct <= 0 {
		err = multierr.Append(err, errors.New("trading.take_profit_pct 必须大于0"))
	}
	if c.Trading.Manual.MaxTradeValue <= 0 {
		err = multierr.Append(err, errors.New("trading.manual.max_trade_value 必须大于0"))
	}
	if c.Trading.Manual.Fraction <= 0 || c.Trading.Manual.Fraction > 1 {
		err = multierr.Append(err, errors.New("trading.manual.fraction 必须位于(0,1]"))
	}
	if c.Trading.Manual.MinTradeValue <= 0 {
		err = multierr.Append(err, errors.New("trading.manual.min_trade_value 必须大于0"))
	}
	if c.Trading.Auto.Fraction <= 0 || c.Trading.Auto.Fraction > 1 {
		err = multierr.Append(err, errors.New("trading.auto.fraction 必须位于(0,1]"))
	}
	if c.Trading.Auto.MinTradeValue <= 0 {
		err = multierr.Append(err, errors.New("trading.auto.min_trade_value 必须大于0"))
	}
	if c.Trading.MaxPositions <= 0 {
		err = multierr.Append(err, errors.New("trading.max_positions 必须大于0"))
	}
	if c.Trading.TradeHistoryUI <= 0 {
		err = multierr.Append(err, errors.New("trading.trade_history_ui 必须大于0"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}
	if c.Scheduler.TickInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.tick_interval 必须大于0"))
	}
	if c.Monitor.Enabled && (c.Monitor.Port <= 0 || c.Monitor.Port > 65535) {
		err = multierr.Append(err, errors.New("monitor.port 必须位于(0,65535]"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
