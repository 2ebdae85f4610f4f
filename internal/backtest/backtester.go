package backtest

import (
	"math"
	"time"

	"github.com/newthinker/sigma/internal/core"
	"go.uber.org/zap"
)

// Run simulates the portfolio return of holding positions against realized
// returns. The position taken at i-1 earns the return at i, and every change
// in position costs cost times its absolute size:
//
//	pr[i] = P[i-1]*R[i] - cost*|P[i] - P[i-1]|,  i >= 1
func Run(returns, positions core.Series, cost float64) (Result, error) {
	if err := validate(returns, positions, cost); err != nil {
		return Result{}, err
	}

	n := returns.Len()
	pr := make([]core.Value, n)
	cumulative := make([]float64, n)
	cumulative[0] = 1

	realized := make([]float64, 0, n-1)
	var turnover float64
	for i := 1; i < n; i++ {
		change := math.Abs(positions.Values[i] - positions.Values[i-1])
		r := positions.Values[i-1]*returns.Values[i] - cost*change

		pr[i] = core.Defined(r)
		realized = append(realized, r)
		cumulative[i] = cumulative[i-1] * (1 + r)
		turnover += change
	}

	return Result{
		PortfolioReturns: core.SignalSeries{Name: returns.Name, Index: returns.Index, Values: pr},
		Cumulative:       core.NewSeries(returns.Name, returns.Index, cumulative),
		Sharpe:           calculateSharpeRatio(realized),
		MaxDrawdown:      calculateMaxDrawdown(cumulative),
		Turnover:         turnover,
	}, nil
}

func validate(returns, positions core.Series, cost float64) error {
	if returns.Len() == 0 {
		return core.Errorf(core.ErrInvalidInput, "return series %q is empty", returns.Name)
	}
	if cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		return core.Errorf(core.ErrInvalidInput, "transaction cost must be a non-negative fraction, got %v", cost)
	}
	if err := returns.Validate(); err != nil {
		return err
	}
	if err := positions.Validate(); err != nil {
		return err
	}
	if !core.SameIndex(returns.Index, positions.Index) {
		return core.Errorf(core.ErrAlignment, "positions %q are not aligned with returns %q", positions.Name, returns.Name)
	}
	for i := range returns.Values {
		if !finite(returns.Values[i]) || !finite(positions.Values[i]) {
			return core.Errorf(core.ErrInvalidInput, "non-finite return or position at index %d", i)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Recorder receives backtest outcomes.
type Recorder interface {
	RecordBacktest(status string, duration float64)
}

// Backtester runs backtests at a fixed transaction cost, logging and
// recording each run.
type Backtester struct {
	cost     float64
	logger   *zap.Logger
	recorder Recorder
}

// New creates a new Backtester. logger and recorder may be nil.
func New(transactionCost float64, logger *zap.Logger, recorder Recorder) *Backtester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backtester{
		cost:     transactionCost,
		logger:   logger,
		recorder: recorder,
	}
}

// TransactionCost returns the configured cost rate.
func (b *Backtester) TransactionCost() float64 {
	return b.cost
}

// Run executes a backtest of positions against returns.
func (b *Backtester) Run(returns, positions core.Series) (Result, error) {
	start := time.Now()
	result, err := Run(returns, positions, b.cost)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "failed"
	}
	if b.recorder != nil {
		b.recorder.RecordBacktest(status, elapsed.Seconds())
	}

	if err != nil {
		b.logger.Warn("backtest failed",
			zap.String("series", returns.Name),
			zap.Error(err),
		)
		return Result{}, err
	}

	b.logger.Debug("backtest complete",
		zap.String("series", returns.Name),
		zap.Int("periods", returns.Len()),
		zap.Float64("total_return", result.TotalReturn()),
		zap.Float64("max_drawdown", result.MaxDrawdown),
		zap.Bool("sharpe_defined", result.Sharpe.Valid),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}
