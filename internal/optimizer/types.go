package optimizer

// Weights is a long-only, fully invested allocation: one entry per asset,
// each in [0,1], summing to 1.
type Weights struct {
	Assets []string  `json:"assets"`
	Values []float64 `json:"values"`
}

// Of returns the weight of one asset.
func (w Weights) Of(asset string) (float64, bool) {
	for i, a := range w.Assets {
		if a == asset {
			return w.Values[i], true
		}
	}
	return 0, false
}

// TargetResult is the outcome of the target-return optimization.
type TargetResult struct {
	Weights    Weights `json:"weights"`
	Return     float64 `json:"return"`     // expected per-period return of the portfolio
	Volatility float64 `json:"volatility"` // sqrt(w' Σ w)
	Sharpe     float64 `json:"sharpe"`     // (Return - risk free) / Volatility, not annualized
}

// Settings bounds the numerical solve.
type Settings struct {
	MaxIterations   int     // major iterations per solve, 0 scales with the number of assets
	FuncEvaluations int     // objective evaluations per solve, 0 scales with the iteration budget
	Tolerance       float64 // absolute objective improvement treated as progress
	StallIterations int     // iterations without progress that count as converged
}

// DefaultSettings returns the solver budget used when none is configured.
func DefaultSettings() Settings {
	return Settings{
		Tolerance:       1e-10,
		StallIterations: 50,
	}
}

// Recorder receives optimization outcomes.
type Recorder interface {
	RecordOptimization(variant, status string, duration float64)
}
