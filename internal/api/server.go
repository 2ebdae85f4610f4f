package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apihandler "github.com/newthinker/sigma/internal/api/handler/api"
	"github.com/newthinker/sigma/internal/api/job"
	"github.com/newthinker/sigma/internal/api/middleware"
	"github.com/newthinker/sigma/internal/api/response"
	"github.com/newthinker/sigma/internal/metrics"
	"github.com/newthinker/sigma/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for sigma
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string // empty disables the metrics endpoint
	MaxJobs     int
	JobTTL      time.Duration
}

// Dependencies are the collaborators behind the routes
type Dependencies struct {
	Runner   apihandler.Runner
	Defaults pipeline.Request
	Metrics  *metrics.Registry
	Stats    func() map[string]any
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: apihandler.AnalysisTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	s.mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		if deps.Stats != nil {
			body["stats"] = deps.Stats()
		}
		response.JSON(w, http.StatusOK, body)
	})

	auth := middleware.APIKeyAuth(cfg.APIKey)
	analysis := apihandler.NewAnalysisHandler(deps.Runner, deps.Defaults)
	s.mux.Handle("POST /api/v1/analyze", auth(http.HandlerFunc(analysis.Analyze)))
	s.mux.Handle("POST /api/v1/optimize", auth(http.HandlerFunc(analysis.Optimize)))

	maxJobs := cfg.MaxJobs
	if maxJobs <= 0 {
		maxJobs = 100
	}
	jobs := apihandler.NewJobHandler(analysis, job.NewStore(maxJobs, cfg.JobTTL), s.logger.Named("jobs"))
	s.mux.Handle("POST /api/v1/jobs/{type}", auth(http.HandlerFunc(jobs.Create)))
	s.mux.Handle("GET /api/v1/jobs/{id}", auth(http.HandlerFunc(jobs.Get)))
	s.mux.Handle("GET /api/v1/jobs", auth(http.HandlerFunc(jobs.List)))

	if cfg.MetricsPath != "" && deps.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
