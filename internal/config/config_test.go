package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/sigma/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))
	return cfgPath
}

func TestLoad_FromFile(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9090

collector:
  coingecko:
    base_url: "http://localhost:1234"
    timeout: 5s

assets: [solana]
days: 90

signals:
  momentum:
    enabled: false

optimizer:
  target_return: 0.002
`)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://localhost:1234", cfg.Collector.CoinGecko.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Collector.CoinGecko.Timeout)
	assert.Equal(t, []string{"solana"}, cfg.Assets)
	assert.Equal(t, 90, cfg.Days)
	assert.False(t, cfg.Signals.Momentum.Enabled)
	require.NotNil(t, cfg.Optimizer.TargetReturn)
	assert.Equal(t, 0.002, *cfg.Optimizer.TargetReturn)

	// untouched keys keep their defaults
	assert.Equal(t, 4, cfg.Collector.Concurrency)
	assert.Equal(t, 10, cfg.Signals.MeanReversion.Window)
	assert.Equal(t, 30, cfg.Signals.Momentum.Window)
	assert.Equal(t, 0.001, cfg.Backtest.TransactionCost)
	assert.True(t, cfg.Optimizer.DropFirstReturn)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SIGMA_TEST_CG_KEY", "secret")
	cfgPath := writeConfig(t, `
collector:
  coingecko:
    api_key: "${SIGMA_TEST_CG_KEY}"
`)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Collector.CoinGecko.APIKey)
}

func TestLoad_BinanceAndJobs(t *testing.T) {
	cfgPath := writeConfig(t, `
collector:
  provider: binance
  binance:
    quote: BUSD

server:
  max_jobs: 10
  job_ttl: 30m
`)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "binance", cfg.Collector.Provider)
	assert.Equal(t, "BUSD", cfg.Collector.Binance.Quote)
	assert.Equal(t, 10*time.Second, cfg.Collector.Binance.Timeout)
	assert.Equal(t, 10, cfg.Server.MaxJobs)
	assert.Equal(t, 30*time.Minute, cfg.Server.JobTTL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, cfg.Assets)
	assert.Equal(t, 365, cfg.Days)
	assert.Equal(t, "coingecko", cfg.Collector.Provider)
	assert.Equal(t, "USDT", cfg.Collector.Binance.Quote)
	assert.Equal(t, 100, cfg.Server.MaxJobs)
	assert.Equal(t, time.Hour, cfg.Server.JobTTL)
	assert.Nil(t, cfg.Optimizer.TargetReturn)
	assert.Zero(t, cfg.Optimizer.MaxIterations)
	assert.Zero(t, cfg.Optimizer.FuncEvaluations)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	nan := func() *float64 { v := math.NaN(); return &v }

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr *core.Error
	}{
		{"valid config", func(c *Config) {}, nil},
		{"invalid port - zero", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"invalid port - too high", func(c *Config) { c.Server.Port = 70000 }, core.ErrConfigInvalid},
		{"no assets", func(c *Config) { c.Assets = nil }, core.ErrConfigMissing},
		{"blank asset", func(c *Config) { c.Assets = []string{" "} }, core.ErrConfigInvalid},
		{"too few days", func(c *Config) { c.Days = 1 }, core.ErrConfigInvalid},
		{"unknown provider", func(c *Config) { c.Collector.Provider = "yahoo" }, core.ErrConfigInvalid},
		{"binance provider", func(c *Config) { c.Collector.Provider = "binance" }, nil},
		{"zero max jobs", func(c *Config) { c.Server.MaxJobs = 0 }, core.ErrConfigInvalid},
		{"zero job ttl", func(c *Config) { c.Server.JobTTL = 0 }, core.ErrConfigInvalid},
		{"zero concurrency", func(c *Config) { c.Collector.Concurrency = 0 }, core.ErrConfigInvalid},
		{"pro without key", func(c *Config) { c.Collector.CoinGecko.Pro = true }, core.ErrConfigMissing},
		{"no signals", func(c *Config) {
			c.Signals.MeanReversion.Enabled = false
			c.Signals.Momentum.Enabled = false
		}, core.ErrConfigMissing},
		{"mean reversion window", func(c *Config) { c.Signals.MeanReversion.Window = 1 }, core.ErrConfigInvalid},
		{"disabled window ignored", func(c *Config) {
			c.Signals.Momentum.Enabled = false
			c.Signals.Momentum.Window = 0
		}, nil},
		{"momentum window", func(c *Config) { c.Signals.Momentum.Window = 0 }, core.ErrConfigInvalid},
		{"position size", func(c *Config) { c.Position.Size = 0 }, core.ErrConfigInvalid},
		{"negative cost", func(c *Config) { c.Backtest.TransactionCost = -0.01 }, core.ErrConfigInvalid},
		{"nan target", func(c *Config) { c.Optimizer.TargetReturn = nan() }, core.ErrConfigInvalid},
		{"negative budget", func(c *Config) { c.Optimizer.MaxIterations = -1 }, core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
