package optimizer

import (
	"math"

	"github.com/newthinker/sigma/internal/core"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Performance describes a fixed allocation over historical returns.
type Performance struct {
	Return           float64    `json:"return"`            // μ'w per period
	Volatility       float64    `json:"volatility"`        // sqrt(w'Σw) per period
	Sharpe           core.Value `json:"sharpe"`            // (Return - risk free) / Volatility
	AnnualizedSharpe core.Value `json:"annualized_sharpe"` // sqrt(252) * Return / Volatility
}

// Evaluate computes the statistics of holding w over r. MaxSharpe only
// returns weights; callers that want its statistics use this.
func Evaluate(r core.Frame, w Weights, riskFree float64) (Performance, error) {
	m, err := toDense(r)
	if err != nil {
		return Performance{}, err
	}
	if len(w.Values) != r.Cols() {
		return Performance{}, core.Errorf(core.ErrInvalidInput, "%d weights for %d assets", len(w.Values), r.Cols())
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, m, nil)

	perf := Performance{
		Return:     floats.Dot(columnMeans(m), w.Values),
		Volatility: math.Sqrt(portfolioVariance(&cov, w.Values)),
	}
	if perf.Volatility > minVolatility {
		perf.Sharpe = core.Defined((perf.Return - riskFree) / perf.Volatility)
		perf.AnnualizedSharpe = core.Defined(math.Sqrt(252) * perf.Return / perf.Volatility)
	}
	return perf, nil
}
