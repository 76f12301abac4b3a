package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{Environment: "test"},
		Provider: ProviderConfig{
			Name:    "binance",
			Symbols: []string{"BTC/USDT"},
			Retry:   RetryConfig{MaxAttempts: 3, MinDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second},
		},
		Trading: TradingConfig{
			Mode:           ModeManual,
			InitialBalance: 1000,
			FxRate:         0.92,
			HistoryWindow:  50,
			RSIPeriod:      14,
			RSIBuy:         35,
			RSISell:        70,
			MinDipPct:      -3,
			StopLossPct:    0.05,
			TakeProfitPct:  0.10,
			Manual:         SizingConfig{MaxTradeValue: 100, Fraction: 1.0, MinTradeValue: 10},
			Auto:           SizingConfig{Fraction: 0.15, MinTradeValue: 20},
			MaxPositions:   4,
			TradeHistoryUI: 50,
		},
		Database: DatabaseConfig{Path: "data/test.db", MaxOpenConns: 4, MaxIdleConns: 4, ConnMaxLifetime: time.Hour},
		Logging: LoggingConfig{
			Level:            "info",
			Encoding:         "console",
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		},
		Scheduler: SchedulerConfig{TickInterval: 15 * time.Second},
		Monitor:   MonitorConfig{Enabled: true, Port: 8800},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Trading.Mode = "hybrid" }, "trading.mode"},
		{"zero balance", func(c *Config) { c.Trading.InitialBalance = 0 }, "trading.initial_balance"},
		{"buy above sell", func(c *Config) { c.Trading.RSIBuy = 80 }, "trading.rsi_buy"},
		{"dip must be negative", func(c *Config) { c.Trading.MinDipPct = 1 }, "trading.min_dip_pct"},
		{"window not larger than period", func(c *Config) { c.Trading.HistoryWindow = 14 }, "trading.history_window"},
		{"stop loss out of range", func(c *Config) { c.Trading.StopLossPct = 1.5 }, "trading.stop_loss_pct"},
		{"no symbols", func(c *Config) { c.Provider.Symbols = nil }, "provider.symbols"},
		{"retry delays inverted", func(c *Config) { c.Provider.Retry.MinDelay = 10 * time.Second }, "min_delay"},
		{"negative tick interval", func(c *Config) { c.Scheduler.TickInterval = 0 }, "scheduler.tick_interval"},
		{"bad monitor port", func(c *Config) { c.Monitor.Port = 0 }, "monitor.port"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	// 只给最小配置，其余走默认值。
	content := "trading:\n  mode: auto\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Trading.Mode != ModeAuto {
		t.Errorf("expected mode from file, got %s", cfg.Trading.Mode)
	}
	if cfg.Trading.InitialBalance != 1000 {
		t.Errorf("expected default initial balance 1000, got %f", cfg.Trading.InitialBalance)
	}
	if cfg.Trading.HistoryWindow != 50 {
		t.Errorf("expected default history window 50, got %d", cfg.Trading.HistoryWindow)
	}
	if cfg.Trading.RSIPeriod != 14 {
		t.Errorf("expected default RSI period 14, got %d", cfg.Trading.RSIPeriod)
	}
	if cfg.Scheduler.TickInterval != 15*time.Second {
		t.Errorf("expected default tick interval 15s, got %s", cfg.Scheduler.TickInterval)
	}
	if len(cfg.Provider.Symbols) == 0 {
		t.Errorf("expected default symbols")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
