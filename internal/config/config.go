package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "paper"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("provider.name", "binance")
	v.SetDefault("provider.symbols", []string{
		"BTC/USDT", "ETH/USDT", "SOL/USDT", "XRP/USDT", "DOGE/USDT", "ADA/USDT",
	})
	v.SetDefault("provider.use_sandbox", false)
	v.SetDefault("provider.retry.max_attempts", 3)
	v.SetDefault("provider.retry.min_delay", "500ms")
	v.SetDefault("provider.retry.max_delay", "5s")

	v.SetDefault("trading.mode", ModeManual)
	v.SetDefault("trading.initial_balance", 1000.0)
	v.SetDefault("trading.fx_rate", 0.92)
	v.SetDefault("trading.history_window", 50)
	v.SetDefault("trading.rsi_period", 14)
	v.SetDefault("trading.rsi_buy", 35.0)
	v.SetDefault("trading.rsi_sell", 70.0)
	v.SetDefault("trading.min_dip_pct", -3.0)
	v.SetDefault("trading.stop_loss_pct", 0.05)
	v.SetDefault("trading.take_profit_pct", 0.10)
	v.SetDefault("trading.manual.max_trade_value", 100.0)
	v.SetDefault("trading.manual.fraction", 1.0)
	v.SetDefault("trading.manual.min_trade_value", 10.0)
	v.SetDefault("trading.auto.max_trade_value", 0.0)
	v.SetDefault("trading.auto.fraction", 0.15)
	v.SetDefault("trading.auto.min_trade_value", 20.0)
	v.SetDefault("trading.max_positions", 4)
	v.SetDefault("trading.trade_history_ui", 50)

	v.SetDefault("database.path", "data/paper_trader.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})

	v.SetDefault("scheduler.tick_interval", "15s")

	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.port", 8800)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
