// Package app assembles the price provider, strategies, backtester,
// optimizer and metrics described by a config into a runnable pipeline.
package app

import (
	"fmt"

	"github.com/newthinker/sigma/internal/backtest"
	"github.com/newthinker/sigma/internal/collector"
	"github.com/newthinker/sigma/internal/collector/binance"
	"github.com/newthinker/sigma/internal/collector/coingecko"
	"github.com/newthinker/sigma/internal/config"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/metrics"
	"github.com/newthinker/sigma/internal/optimizer"
	"github.com/newthinker/sigma/internal/pipeline"
	"github.com/newthinker/sigma/internal/position"
	"github.com/newthinker/sigma/internal/strategy"
	"github.com/newthinker/sigma/internal/strategy/mean_reversion"
	"github.com/newthinker/sigma/internal/strategy/momentum"
	"go.uber.org/zap"
)

// App is the main application composition root
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Registry
	providers *collector.Registry
	provider  collector.PriceProvider
	engine    *strategy.Engine
	pipeline  *pipeline.Pipeline
}

// Option customizes App construction
type Option func(*options)

type options struct {
	provider collector.PriceProvider
	metrics  *metrics.Registry
}

// WithProvider replaces the configured price provider
func WithProvider(p collector.PriceProvider) Option {
	return func(o *options) { o.provider = p }
}

// WithMetrics shares an existing metrics registry
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *options) { o.metrics = reg }
}

// New creates a new App from a validated config
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	reg := o.metrics
	if reg == nil {
		reg = metrics.NewRegistry()
	}

	providers := collector.NewRegistry()
	name := cfg.Collector.Provider
	if o.provider != nil {
		providers.Register(collector.NewShared(o.provider, reg, logger.Named("collector")))
		name = o.provider.Name()
	} else {
		for _, p := range NewProviders(cfg.Collector) {
			providers.Register(collector.NewShared(p, reg, logger.Named("collector")))
		}
	}
	provider, ok := providers.Get(name)
	if !ok {
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown collector provider %q", name)
	}

	engine, err := NewEngine(cfg.Signals, logger.Named("strategy"))
	if err != nil {
		return nil, err
	}

	oc := cfg.Optimizer
	opt := optimizer.New(optimizer.Settings{
		MaxIterations:   oc.MaxIterations,
		FuncEvaluations: oc.FuncEvaluations,
		Tolerance:       oc.Tolerance,
	}, logger.Named("optimizer"), reg)

	p := pipeline.New(pipeline.Components{
		Provider:   provider,
		Engine:     engine,
		Mapper:     position.Unit{Size: cfg.Position.Size},
		Backtester: backtest.New(cfg.Backtest.TransactionCost, logger.Named("backtest"), reg),
		Optimizer:  opt,
		Recorder:   reg,
		Logger:     logger.Named("pipeline"),
	}, pipeline.Settings{
		Concurrency:     cfg.Collector.Concurrency,
		RiskFreeRate:    oc.RiskFreeRate,
		DropFirstReturn: oc.DropFirstReturn,
	})

	return &App{
		cfg:       cfg,
		logger:    logger,
		metrics:   reg,
		providers: providers,
		provider:  provider,
		engine:    engine,
		pipeline:  p,
	}, nil
}

// NewProviders builds every supported price provider from config
func NewProviders(cfg config.CollectorConfig) []collector.PriceProvider {
	cg := cfg.CoinGecko
	bn := cfg.Binance
	return []collector.PriceProvider{
		coingecko.New(collector.Config{
			APIKey:  cg.APIKey,
			BaseURL: cg.BaseURL,
			Pro:     cg.Pro,
			Timeout: cg.Timeout,
		}),
		binance.New(collector.Config{
			BaseURL: bn.BaseURL,
			Timeout: bn.Timeout,
		}, bn.Quote),
	}
}

// NewEngine registers every enabled signal generator
func NewEngine(cfg config.SignalsConfig, logger *zap.Logger) (*strategy.Engine, error) {
	engine := strategy.NewEngine(logger)

	enabled := []struct {
		cfg config.SignalConfig
		s   strategy.Strategy
	}{
		{cfg.MeanReversion, &mean_reversion.MeanReversion{}},
		{cfg.Momentum, &momentum.Momentum{}},
	}
	for _, e := range enabled {
		if !e.cfg.Enabled {
			continue
		}
		err := e.s.Init(strategy.Config{
			Enabled: true,
			Params:  map[string]any{"window": e.cfg.Window},
		})
		if err != nil {
			return nil, fmt.Errorf("initializing %s: %w", e.s.Name(), err)
		}
		engine.Register(e.s)
	}
	return engine, nil
}

// Request builds a pipeline request for the configured assets and horizon
func (a *App) Request(target *float64, skipOptimization bool) pipeline.Request {
	if target == nil {
		target = a.cfg.Optimizer.TargetReturn
	}
	return pipeline.Request{
		Assets:           a.cfg.Assets,
		Days:             a.cfg.Days,
		TargetReturn:     target,
		SkipOptimization: skipOptimization,
	}
}

// Pipeline returns the configured pipeline
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Metrics returns the metrics registry
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// Config returns the config the app was built from
func (a *App) Config() *config.Config {
	return a.cfg
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	names := make([]string, 0)
	for _, s := range a.engine.GetAll() {
		names = append(names, s.Name())
	}
	return map[string]any{
		"assets":     a.cfg.Assets,
		"days":       a.cfg.Days,
		"provider":   a.provider.Name(),
		"providers":  a.providers.Names(),
		"strategies": names,
	}
}
