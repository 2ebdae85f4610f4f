package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/newthinker/sigma/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Collector CollectorConfig `mapstructure:"collector"`
	Assets    []string        `mapstructure:"assets"`
	Days      int             `mapstructure:"days"`
	Signals   SignalsConfig   `mapstructure:"signals"`
	Position  PositionConfig  `mapstructure:"position"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
}

type ServerConfig struct {
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	APIKey  string        `mapstructure:"api_key"` // empty disables /api/v1 auth
	MaxJobs int           `mapstructure:"max_jobs"`
	JobTTL  time.Duration `mapstructure:"job_ttl"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// CollectorConfig selects the price provider by name.
type CollectorConfig struct {
	Provider    string          `mapstructure:"provider"`
	CoinGecko   CoinGeckoConfig `mapstructure:"coingecko"`
	Binance     BinanceConfig   `mapstructure:"binance"`
	Concurrency int             `mapstructure:"concurrency"`
}

type BinanceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Quote   string        `mapstructure:"quote"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CoinGeckoConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Pro     bool          `mapstructure:"pro"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SignalsConfig struct {
	MeanReversion SignalConfig `mapstructure:"mean_reversion"`
	Momentum      SignalConfig `mapstructure:"momentum"`
}

// SignalConfig enables one signal generator and sets its rolling window.
type SignalConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Window  int  `mapstructure:"window"`
}

type PositionConfig struct {
	Size float64 `mapstructure:"size"`
}

type BacktestConfig struct {
	TransactionCost float64 `mapstructure:"transaction_cost"`
}

// OptimizerConfig holds portfolio optimizer settings. A nil TargetReturn
// skips the target-return variant.
type OptimizerConfig struct {
	TargetReturn    *float64 `mapstructure:"target_return"`
	RiskFreeRate    float64  `mapstructure:"risk_free_rate"`
	MaxIterations   int      `mapstructure:"max_iterations"`   // 0 scales with the number of assets
	FuncEvaluations int      `mapstructure:"func_evaluations"` // 0 scales with max_iterations
	Tolerance       float64  `mapstructure:"tolerance"`
	DropFirstReturn bool     `mapstructure:"drop_first_return"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			MaxJobs: 100,
			JobTTL:  time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Collector: CollectorConfig{
			Provider: "coingecko",
			CoinGecko: CoinGeckoConfig{
				Timeout: 10 * time.Second,
			},
			Binance: BinanceConfig{
				Quote:   "USDT",
				Timeout: 10 * time.Second,
			},
			Concurrency: 4,
		},
		Assets: []string{"bitcoin", "ethereum"},
		Days:   365,
		Signals: SignalsConfig{
			MeanReversion: SignalConfig{Enabled: true, Window: 10},
			Momentum:      SignalConfig{Enabled: true, Window: 30},
		},
		Position: PositionConfig{
			Size: 1.0,
		},
		Backtest: BacktestConfig{
			TransactionCost: 0.001,
		},
		Optimizer: OptimizerConfig{
			Tolerance:       1e-10,
			DropFirstReturn: true,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxJobs < 1 || c.Server.JobTTL <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("server max_jobs and job_ttl must be positive"))
	}

	// Data validation
	if len(c.Assets) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("at least one asset is required"))
	}
	for i, a := range c.Assets {
		if strings.TrimSpace(a) == "" {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("asset %d is empty", i))
		}
	}
	if c.Days < 2 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("days must be at least 2, got %d", c.Days))
	}
	if c.Collector.Concurrency < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("collector concurrency must be positive, got %d", c.Collector.Concurrency))
	}
	switch c.Collector.Provider {
	case "coingecko", "binance":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown collector provider %q", c.Collector.Provider))
	}
	if c.Collector.CoinGecko.Pro && c.Collector.CoinGecko.APIKey == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("coingecko api_key required when pro is enabled"))
	}

	// Signal validation
	if !c.Signals.MeanReversion.Enabled && !c.Signals.Momentum.Enabled {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("no signal generator is enabled"))
	}
	if c.Signals.MeanReversion.Enabled && c.Signals.MeanReversion.Window < 2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("mean_reversion window must be at least 2, got %d", c.Signals.MeanReversion.Window))
	}
	if c.Signals.Momentum.Enabled && c.Signals.Momentum.Window < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("momentum window must be positive, got %d", c.Signals.Momentum.Window))
	}

	// Backtest validation
	if !finite(c.Position.Size) || c.Position.Size <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("position size must be positive, got %g", c.Position.Size))
	}
	if !finite(c.Backtest.TransactionCost) || c.Backtest.TransactionCost < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("transaction_cost cannot be negative, got %g", c.Backtest.TransactionCost))
	}

	// Optimizer validation
	o := c.Optimizer
	if o.TargetReturn != nil && !finite(*o.TargetReturn) {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("target_return must be finite"))
	}
	if !finite(o.RiskFreeRate) {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("risk_free_rate must be finite"))
	}
	if o.MaxIterations < 0 || o.FuncEvaluations < 0 || o.Tolerance < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("optimizer budget cannot be negative"))
	}

	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
