package pipeline

import (
	"time"

	"github.com/newthinker/sigma/internal/backtest"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/optimizer"
)

// Report is the outcome of one analysis run.
type Report struct {
	RunID        string              `json:"run_id"`
	Assets       []string            `json:"assets"`
	Start        time.Time           `json:"start"`
	End          time.Time           `json:"end"`
	Observations int                 `json:"observations"`
	Cost         float64             `json:"transaction_cost"`
	Signals      []SignalSummary     `json:"signals"`
	Combined     SignalSummary       `json:"combined"`
	Backtests    []AssetBacktest     `json:"backtests"`
	Optimization *OptimizationReport `json:"optimization,omitempty"`
}

// SignalSummary describes one signal series without its full history.
type SignalSummary struct {
	Name    string     `json:"name"`
	Defined int        `json:"defined"`
	Long    int        `json:"long"`
	Short   int        `json:"short"`
	Flat    int        `json:"flat"`
	Last    core.Value `json:"last"`
}

// AssetBacktest is the backtest of one asset's return series.
type AssetBacktest struct {
	Asset       string          `json:"asset"`
	TotalReturn float64         `json:"total_return"`
	Sharpe      core.Value      `json:"sharpe"`
	MaxDrawdown float64         `json:"max_drawdown"`
	Turnover    float64         `json:"turnover"`
	Result      backtest.Result `json:"-"`
}

// OptimizationReport holds both optimizer variants and the backtests of
// the Sharpe-maximizing weights held constantly.
type OptimizationReport struct {
	Observations int                     `json:"observations"`
	Cost         float64                 `json:"transaction_cost"`
	MaxSharpe    AllocationReport        `json:"max_sharpe"`
	TargetReturn *optimizer.TargetResult `json:"target_return,omitempty"`
	Backtests    []AssetBacktest         `json:"backtests,omitempty"`
}

// AllocationReport pairs weights with their historical performance.
type AllocationReport struct {
	Weights     map[string]float64    `json:"weights"`
	Performance optimizer.Performance `json:"performance"`
}

func summarize(s core.SignalSeries) SignalSummary {
	sum := SignalSummary{Name: s.Name}
	for _, v := range s.Values {
		if !v.Valid {
			continue
		}
		sum.Defined++
		switch {
		case v.V > 0:
			sum.Long++
		case v.V < 0:
			sum.Short++
		default:
			sum.Flat++
		}
	}
	sum.Last, _ = s.Last()
	return sum
}

func assetBacktest(asset string, r backtest.Result) AssetBacktest {
	return AssetBacktest{
		Asset:       asset,
		TotalReturn: r.TotalReturn(),
		Sharpe:      r.Sharpe,
		MaxDrawdown: r.MaxDrawdown,
		Turnover:    r.Turnover,
		Result:      r,
	}
}

func weightMap(w optimizer.Weights) map[string]float64 {
	m := make(map[string]float64, len(w.Assets))
	for _, a := range w.Assets {
		m[a], _ = w.Of(a)
	}
	return m
}
