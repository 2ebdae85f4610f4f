package backtest

import (
	"github.com/newthinker/sigma/internal/core"
)

// TradingDays annualises daily statistics.
const TradingDays = 252

// Result holds the complete backtest output. It is built once by Run and
// not modified afterwards.
type Result struct {
	PortfolioReturns core.SignalSeries // element 0 is undefined
	Cumulative       core.Series       // starts at 1
	Sharpe           core.Value        // undefined when returns have zero variance
	MaxDrawdown      float64           // largest peak-to-trough decline, <= 0
	Turnover         float64           // sum of absolute position changes
}

// SharpeRatio returns the annualized Sharpe ratio, or ErrDegenerateSeries
// when it is undefined.
func (r Result) SharpeRatio() (float64, error) {
	if !r.Sharpe.Valid {
		return 0, core.Errorf(core.ErrDegenerateSeries, "portfolio returns have zero standard deviation")
	}
	return r.Sharpe.V, nil
}

// TotalReturn returns the final cumulative value minus one.
func (r Result) TotalReturn() float64 {
	_, last, ok := r.Cumulative.Last()
	if !ok {
		return 0
	}
	return last - 1
}
