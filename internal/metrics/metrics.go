package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// computeBuckets cover in-process numerical work, from sub-millisecond
// backtests to multi-second optimizer solves.
var computeBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	signalsGenerated     *prometheus.CounterVec
	analysisRuns         *prometheus.CounterVec
	analysisDuration     prometheus.Histogram
	backtestsTotal       *prometheus.CounterVec
	backtestDuration     prometheus.Histogram
	optimizationsTotal   *prometheus.CounterVec
	optimizationDuration *prometheus.HistogramVec
	priceFetches         *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.signalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigma_signals_generated_total",
			Help: "Total number of defined signal values generated",
		},
		[]string{"strategy", "direction"},
	)
	r.analysisRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigma_analysis_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"},
	)
	r.analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sigma_analysis_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)
	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigma_backtests_total",
			Help: "Total number of backtests",
		},
		[]string{"status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sigma_backtest_duration_seconds",
			Help:    "Backtest duration in seconds",
			Buckets: computeBuckets,
		},
	)
	r.optimizationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigma_optimizations_total",
			Help: "Total number of portfolio optimizations",
		},
		[]string{"variant", "status"},
	)
	r.optimizationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sigma_optimization_duration_seconds",
			Help:    "Portfolio optimization duration in seconds",
			Buckets: computeBuckets,
		},
		[]string{"variant"},
	)
	r.priceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigma_price_fetches_total",
			Help: "Total number of price fetches",
		},
		[]string{"provider", "status"},
	)

	reg.MustRegister(r.signalsGenerated)
	reg.MustRegister(r.analysisRuns)
	reg.MustRegister(r.analysisDuration)
	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.optimizationsTotal)
	reg.MustRegister(r.optimizationDuration)
	reg.MustRegister(r.priceFetches)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordSignal counts defined signal values of a strategy by direction
// ("long", "short" or "flat").
func (r *Registry) RecordSignal(strategy, direction string, count int) {
	r.signalsGenerated.WithLabelValues(strategy, direction).Add(float64(count))
}

// RecordAnalysisRun records a pipeline run completion.
func (r *Registry) RecordAnalysisRun(status string, duration float64) {
	r.analysisRuns.WithLabelValues(status).Inc()
	r.analysisDuration.Observe(duration)
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordOptimization records an optimizer run.
func (r *Registry) RecordOptimization(variant, status string, duration float64) {
	r.optimizationsTotal.WithLabelValues(variant, status).Inc()
	r.optimizationDuration.WithLabelValues(variant).Observe(duration)
}

// RecordPriceFetch records a price provider call.
func (r *Registry) RecordPriceFetch(provider, status string) {
	r.priceFetches.WithLabelValues(provider, status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
