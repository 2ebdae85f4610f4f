// Package pipeline runs the end-to-end analysis: fetch prices, generate and
// combine signals, backtest the resulting positions and optimize weights.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/sigma/internal/backtest"
	"github.com/newthinker/sigma/internal/collector"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/optimizer"
	"github.com/newthinker/sigma/internal/position"
	"github.com/newthinker/sigma/internal/returns"
	"github.com/newthinker/sigma/internal/strategy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Recorder receives pipeline-level outcomes.
type Recorder interface {
	RecordSignal(strategy, direction string, count int)
	RecordAnalysisRun(status string, duration float64)
}

// Settings are the run-independent knobs of a pipeline.
type Settings struct {
	Concurrency     int     // concurrent price fetches
	RiskFreeRate    float64 // per-period rate used by the target-return variant
	DropFirstReturn bool    // drop the leading zero return before optimizing
}

// Request selects what one run analyzes.
type Request struct {
	Assets           []string `json:"assets"`
	Days             int      `json:"days"`
	TargetReturn     *float64 `json:"target_return,omitempty"`
	SkipOptimization bool     `json:"skip_optimization,omitempty"`
}

// Components are the collaborators a pipeline drives.
type Components struct {
	Provider   collector.PriceProvider
	Engine     *strategy.Engine
	Mapper     position.Mapper
	Backtester *backtest.Backtester
	Optimizer  *optimizer.Optimizer
	Recorder   Recorder
	Logger     *zap.Logger
}

// Pipeline is safe for concurrent runs.
type Pipeline struct {
	Components
	settings Settings
}

// New creates a pipeline. A nil Mapper holds unit positions; a nil Logger
// discards logs.
func New(c Components, settings Settings) *Pipeline {
	if c.Mapper == nil {
		c.Mapper = position.Unit{Size: 1}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if settings.Concurrency < 1 {
		settings.Concurrency = 1
	}
	return &Pipeline{Components: c, settings: settings}
}

// Analyze runs the full analysis for req.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.Logger.With(zap.String("run_id", runID))

	report, err := p.analyze(ctx, log, req)
	p.recordRun(start, err)
	if err != nil {
		log.Error("analysis failed", zap.Strings("assets", req.Assets), zap.Error(err))
		return nil, err
	}

	report.RunID = runID
	log.Info("analysis complete",
		zap.Strings("assets", report.Assets),
		zap.Int("observations", report.Observations),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

// Optimize fetches prices and runs only the portfolio optimizer.
func (p *Pipeline) Optimize(ctx context.Context, req Request) (*OptimizationReport, error) {
	log := p.Logger.With(zap.String("run_id", uuid.NewString()))

	prices, err := p.Fetch(ctx, req.Assets, req.Days)
	if err != nil {
		log.Error("price fetch failed", zap.Error(err))
		return nil, err
	}
	rets, err := assetReturns(prices)
	if err != nil {
		return nil, err
	}
	opt, err := p.optimize(rets, req.TargetReturn)
	if err != nil {
		log.Error("optimization failed", zap.Strings("assets", req.Assets), zap.Error(err))
		return nil, err
	}
	return opt, nil
}

func (p *Pipeline) analyze(ctx context.Context, log *zap.Logger, req Request) (*Report, error) {
	prices, err := p.Fetch(ctx, req.Assets, req.Days)
	if err != nil {
		return nil, err
	}
	rets, err := assetReturns(prices)
	if err != nil {
		return nil, err
	}

	signals, err := p.Engine.Generate(ctx, prices...)
	if err != nil {
		return nil, err
	}
	combined, err := strategy.Combine(signals...)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Assets:       make([]string, len(prices)),
		Observations: prices[0].Len(),
		Cost:         p.Backtester.TransactionCost(),
		Combined:     summarize(combined),
	}
	report.Start, report.End = prices[0].Index[0], prices[0].Index[prices[0].Len()-1]
	for i, s := range prices {
		report.Assets[i] = s.Name
	}
	for _, s := range signals {
		sum := summarize(s)
		report.Signals = append(report.Signals, sum)
		p.recordSignals(strategyName(s.Name), sum)
	}
	p.recordSignals(combined.Name, report.Combined)

	positions := p.Mapper.Map(combined)
	for _, r := range rets {
		res, err := p.Backtester.Run(r, positions)
		if err != nil {
			return nil, err
		}
		report.Backtests = append(report.Backtests, assetBacktest(r.Name, res))
	}
	log.Debug("signals backtested",
		zap.Int("signals", len(signals)),
		zap.Int("long", report.Combined.Long),
		zap.Int("short", report.Combined.Short),
	)

	if req.SkipOptimization {
		return report, nil
	}
	report.Optimization, err = p.optimize(rets, req.TargetReturn)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Fetch retrieves prices for every asset concurrently and restricts them to
// their common days.
func (p *Pipeline) Fetch(ctx context.Context, assets []string, days int) ([]core.Series, error) {
	if len(assets) == 0 {
		return nil, core.Errorf(core.ErrInvalidInput, "no assets requested")
	}

	prices := make([]core.Series, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.settings.Concurrency)
	for i, asset := range assets {
		g.Go(func() error {
			s, err := p.Provider.FetchPrices(gctx, asset, days)
			if err != nil {
				return err
			}
			s.Name = asset
			prices[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	aligned, err := collector.Intersect(prices...)
	if err != nil {
		return nil, err
	}
	if aligned[0].Len() < 2 {
		return nil, core.Errorf(core.ErrNoData, "only %d common observations", aligned[0].Len())
	}
	return aligned, nil
}

func (p *Pipeline) optimize(rets []core.Series, target *float64) (*OptimizationReport, error) {
	frame, err := core.NewFrame(rets...)
	if err != nil {
		return nil, err
	}
	full := frame
	if p.settings.DropFirstReturn {
		frame = frame.DropFirst()
	}

	weights, err := p.Optimizer.MaxSharpe(frame)
	if err != nil {
		return nil, err
	}
	perf, err := optimizer.Evaluate(frame, weights, p.settings.RiskFreeRate)
	if err != nil {
		return nil, err
	}
	report := &OptimizationReport{
		Observations: frame.Rows(),
		Cost:         p.Backtester.TransactionCost(),
		MaxSharpe:    AllocationReport{Weights: weightMap(weights), Performance: perf},
	}

	if target != nil {
		res, err := p.Optimizer.TargetReturn(frame, *target, p.settings.RiskFreeRate)
		if err != nil {
			return nil, err
		}
		report.TargetReturn = &res
	}

	held, err := position.FromWeights(weights.Assets, weights.Values, full.Index)
	if err != nil {
		return nil, err
	}
	for j, asset := range weights.Assets {
		r, ok := full.Column(asset)
		if !ok {
			return nil, core.Errorf(core.ErrAlignment, "no returns for weighted asset %q", asset)
		}
		res, err := p.Backtester.Run(r, held[j])
		if err != nil {
			return nil, err
		}
		report.Backtests = append(report.Backtests, assetBacktest(asset, res))
	}
	return report, nil
}

func (p *Pipeline) recordSignals(name string, sum SignalSummary) {
	if p.Recorder == nil {
		return
	}
	p.Recorder.RecordSignal(name, "long", sum.Long)
	p.Recorder.RecordSignal(name, "short", sum.Short)
	p.Recorder.RecordSignal(name, "flat", sum.Flat)
}

func (p *Pipeline) recordRun(start time.Time, err error) {
	if p.Recorder == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	p.Recorder.RecordAnalysisRun(status, time.Since(start).Seconds())
}

func assetReturns(prices []core.Series) ([]core.Series, error) {
	rets := make([]core.Series, len(prices))
	for i, s := range prices {
		r, err := returns.Calculate(s)
		if err != nil {
			return nil, err
		}
		rets[i] = r
	}
	return rets, nil
}

// strategyName extracts the strategy from an "<asset>/<strategy>" signal name.
func strategyName(signal string) string {
	if i := strings.LastIndex(signal, "/"); i >= 0 {
		return signal[i+1:]
	}
	return signal
}
