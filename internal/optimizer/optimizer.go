// Package optimizer computes long-only, fully invested portfolio weights
// from historical returns.
//
// Weights are parameterised as w = softmax(z, 0) over n-1 free variables, so
// every candidate the solver visits already satisfies 0 <= w <= 1 and
// Σw = 1; z = 0 is the equal-weight starting point. The solve itself is
// gonum's Nelder-Mead, which needs no gradient and tolerates the kink of
// the absolute-value penalty in the target-return objective.
package optimizer

import (
	"math"
	"time"

	"github.com/newthinker/sigma/internal/core"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// minVolatility is the smallest volatility a Sharpe ratio is divided by.
const minVolatility = 1e-15

// Solver budget when none is configured.
const (
	iterationsPerAsset      = 2000
	evaluationsPerIteration = 10
	solverRestarts          = 1
)

// Variant names used in logs and metrics.
const (
	VariantTargetReturn = "target_return"
	VariantMaxSharpe    = "max_sharpe"
)

// Optimizer holds no state between calls; one instance may serve
// concurrent callers.
type Optimizer struct {
	settings Settings
	logger   *zap.Logger
	recorder Recorder
}

// New creates an optimizer. Zero fields of settings take their defaults;
// logger and recorder may be nil.
func New(settings Settings, logger *zap.Logger, recorder Recorder) *Optimizer {
	def := DefaultSettings()
	if settings.MaxIterations < 0 {
		settings.MaxIterations = 0
	}
	if settings.FuncEvaluations < 0 {
		settings.FuncEvaluations = 0
	}
	if settings.Tolerance <= 0 {
		settings.Tolerance = def.Tolerance
	}
	if settings.StallIterations <= 0 {
		settings.StallIterations = def.StallIterations
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{settings: settings, logger: logger, recorder: recorder}
}

// Settings returns the effective solver budget.
func (o *Optimizer) Settings() Settings {
	return o.settings
}

// TargetReturn minimizes sqrt(w'Σw) + |μ'w - target| where μ and Σ are the
// sample mean and covariance of the return columns, and reports the
// resulting return, volatility and Sharpe ratio against riskFree.
func (o *Optimizer) TargetReturn(r core.Frame, target, riskFree float64) (TargetResult, error) {
	start := time.Now()
	res, err := o.targetReturn(r, target, riskFree)
	o.record(VariantTargetReturn, start, err)
	if err != nil {
		return TargetResult{}, err
	}

	o.logger.Debug("target return optimization complete",
		zap.Strings("assets", res.Weights.Assets),
		zap.Float64s("weights", res.Weights.Values),
		zap.Float64("target", target),
		zap.Float64("return", res.Return),
		zap.Float64("volatility", res.Volatility),
		zap.Float64("sharpe", res.Sharpe),
	)
	return res, nil
}

// MaxSharpe maximizes the annualized Sharpe ratio sqrt(252)*mean(Rw)/std(Rw)
// of the realized portfolio return series. Only the weights are returned.
func (o *Optimizer) MaxSharpe(r core.Frame) (Weights, error) {
	start := time.Now()
	w, err := o.maxSharpe(r)
	o.record(VariantMaxSharpe, start, err)
	if err != nil {
		return Weights{}, err
	}

	o.logger.Debug("max sharpe optimization complete",
		zap.Strings("assets", w.Assets),
		zap.Float64s("weights", w.Values),
	)
	return w, nil
}

func (o *Optimizer) targetReturn(r core.Frame, target, riskFree float64) (TargetResult, error) {
	if math.IsNaN(target) || math.IsInf(target, 0) || math.IsNaN(riskFree) || math.IsInf(riskFree, 0) {
		return TargetResult{}, core.Errorf(core.ErrInvalidInput, "target return and risk-free rate must be finite")
	}
	m, err := toDense(r)
	if err != nil {
		return TargetResult{}, err
	}

	mu := columnMeans(m)
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, m, nil)

	objective := func(w []float64) float64 {
		return math.Sqrt(portfolioVariance(&cov, w)) + math.Abs(floats.Dot(mu, w)-target)
	}

	w, err := o.solve(r.Cols(), objective)
	if err != nil {
		return TargetResult{}, err
	}

	ret := floats.Dot(mu, w)
	vol := math.Sqrt(portfolioVariance(&cov, w))
	if vol <= minVolatility || math.IsNaN(vol) {
		return TargetResult{}, core.Errorf(core.ErrDegenerateInput,
			"portfolio volatility %g is too small for a Sharpe ratio", vol)
	}

	return TargetResult{
		Weights:    Weights{Assets: r.Columns, Values: w},
		Return:     ret,
		Volatility: vol,
		Sharpe:     (ret - riskFree) / vol,
	}, nil
}

func (o *Optimizer) maxSharpe(r core.Frame) (Weights, error) {
	m, err := toDense(r)
	if err != nil {
		return Weights{}, err
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, m, nil)
	if allConstant(&cov) {
		return Weights{}, core.Errorf(core.ErrDegenerateInput, "every asset has constant returns")
	}

	rows, _ := m.Dims()
	port := mat.NewVecDense(rows, nil)
	objective := func(w []float64) float64 {
		port.MulVec(m, mat.NewVecDense(len(w), w))
		mean, std := stat.MeanStdDev(port.RawVector().Data, nil)
		if std == 0 || math.IsNaN(std) {
			return math.Inf(1)
		}
		return -math.Sqrt(252) * mean / std
	}

	w, err := o.solve(r.Cols(), objective)
	if err != nil {
		return Weights{}, err
	}

	perf, err := Evaluate(r, Weights{Assets: r.Columns, Values: w}, 0)
	if err != nil {
		return Weights{}, err
	}
	if perf.Volatility <= minVolatility {
		return Weights{}, core.Errorf(core.ErrDegenerateInput,
			"portfolio return series has zero standard deviation at the solution")
	}

	return Weights{Assets: r.Columns, Values: w}, nil
}

// solve minimizes objective over the simplex of n weights.
func (o *Optimizer) solve(n int, objective func(w []float64) float64) ([]float64, error) {
	if n == 1 {
		return []float64{1}, nil
	}

	problem := optimize.Problem{
		Func: func(z []float64) float64 {
			return objective(softmax(z))
		},
	}
	iterations, evaluations := o.budget(n)
	settings := &optimize.Settings{
		MajorIterations: iterations,
		FuncEvaluations: evaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   o.settings.Tolerance,
			Iterations: o.settings.StallIterations,
		},
	}

	// n-1 free variables, the last logit is pinned at 0
	initial := make([]float64, n-1)
	var result *optimize.Result
	for attempt := 0; ; attempt++ {
		var err error
		result, err = optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
		if result != nil && exhausted(result.Status) && attempt < solverRestarts {
			// restart from the best point with a fresh simplex
			o.logger.Debug("solver budget exhausted, restarting",
				zap.Int("attempt", attempt+1),
				zap.Float64("objective", result.F),
			)
			initial = result.X
			continue
		}
		if err != nil {
			return nil, core.WrapError(core.ErrOptimizationDiverged, err)
		}
		break
	}
	if !converged(result.Status) {
		return nil, core.Errorf(core.ErrOptimizationDiverged,
			"solver stopped with status %v after %d iterations", result.Status, result.Stats.MajorIterations)
	}
	if math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		return nil, core.Errorf(core.ErrDegenerateInput, "objective is undefined at the solution")
	}

	o.logger.Debug("solver converged",
		zap.String("status", result.Status.String()),
		zap.Int("iterations", result.Stats.MajorIterations),
		zap.Int("evaluations", result.Stats.FuncEvaluations),
		zap.Float64("objective", result.F),
	)
	return softmax(result.X), nil
}

func (o *Optimizer) record(variant string, start time.Time, err error) {
	if o.recorder == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	o.recorder.RecordOptimization(variant, status, time.Since(start).Seconds())
}

// budget returns the iteration and evaluation limits of one solve over n
// assets. Configured limits are used as given.
func (o *Optimizer) budget(n int) (iterations, evaluations int) {
	iterations = o.settings.MaxIterations
	if iterations == 0 {
		iterations = iterationsPerAsset * n
	}
	evaluations = o.settings.FuncEvaluations
	if evaluations == 0 {
		evaluations = evaluationsPerIteration * iterations
	}
	return iterations, evaluations
}

func exhausted(s optimize.Status) bool {
	return s == optimize.IterationLimit || s == optimize.FunctionEvaluationLimit
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionConvergence,
		optimize.MethodConverge,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.FunctionThreshold:
		return true
	default:
		return false
	}
}

// softmax maps n-1 free logits (plus an implicit 0) onto the unit simplex.
func softmax(z []float64) []float64 {
	w := make([]float64, len(z)+1)
	maxZ := 0.0
	for _, v := range z {
		if v > maxZ {
			maxZ = v
		}
	}
	for i, v := range z {
		w[i] = math.Exp(v - maxZ)
	}
	w[len(z)] = math.Exp(-maxZ)
	floats.Scale(1/floats.Sum(w), w)
	return w
}

func toDense(r core.Frame) (*mat.Dense, error) {
	if r.Cols() == 0 {
		return nil, core.Errorf(core.ErrInvalidInput, "no assets to optimize")
	}
	if r.Rows() < 2 {
		return nil, core.Errorf(core.ErrInvalidInput, "need at least 2 return observations, got %d", r.Rows())
	}
	if !r.Finite() {
		return nil, core.Errorf(core.ErrInvalidInput, "returns contain non-finite values")
	}

	m := mat.NewDense(r.Rows(), r.Cols(), nil)
	for i, row := range r.Data {
		if len(row) != r.Cols() {
			return nil, core.Errorf(core.ErrInvalidInput, "row %d has %d values for %d assets", i, len(row), r.Cols())
		}
		m.SetRow(i, row)
	}
	return m, nil
}

func columnMeans(m *mat.Dense) []float64 {
	_, cols := m.Dims()
	mu := make([]float64, cols)
	for j := range mu {
		mu[j] = stat.Mean(mat.Col(nil, j, m), nil)
	}
	return mu
}

func allConstant(cov *mat.SymDense) bool {
	n := cov.SymmetricDim()
	for i := 0; i < n; i++ {
		if cov.At(i, i) > minVolatility*minVolatility {
			return false
		}
	}
	return true
}

func portfolioVariance(cov *mat.SymDense, w []float64) float64 {
	v := mat.NewVecDense(len(w), w)
	return math.Max(mat.Inner(v, cov, v), 0)
}
