package api

import (
	"context"
	"net/http"

	"github.com/newthinker/sigma/internal/api/job"
	"github.com/newthinker/sigma/internal/api/response"
	"github.com/newthinker/sigma/internal/core"
	"go.uber.org/zap"
)

// Job types accepted by JobHandler.
const (
	JobAnalyze  = "analyze"
	JobOptimize = "optimize"
)

// JobHandler runs analyses in the background and reports on them by ID.
type JobHandler struct {
	analysis *AnalysisHandler
	store    *job.Store
	logger   *zap.Logger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(analysis *AnalysisHandler, store *job.Store, logger *zap.Logger) *JobHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobHandler{analysis: analysis, store: store, logger: logger}
}

// Create starts a job of the type named in the path.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("type")
	if kind != JobAnalyze && kind != JobOptimize {
		response.FromError(w, core.Errorf(core.ErrInvalidInput, "unknown job type %q", kind))
		return
	}

	req, err := h.analysis.decode(r)
	if err != nil {
		response.FromError(w, err)
		return
	}

	j := h.store.Create(kind)
	go h.run(j.ID, kind, func(ctx context.Context) (any, error) {
		if kind == JobOptimize {
			return h.analysis.runner.Optimize(ctx, req)
		}
		return h.analysis.runner.Analyze(ctx, req)
	})

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

func (h *JobHandler) run(id, kind string, fn func(ctx context.Context) (any, error)) {
	logger := h.logger.With(zap.String("job_id", id), zap.String("type", kind))
	if err := h.store.Start(id); err != nil {
		logger.Warn("job evicted before start", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), AnalysisTimeout)
	defer cancel()

	result, err := fn(ctx)
	if err != nil {
		logger.Warn("job failed", zap.Error(err))
	} else {
		logger.Info("job complete")
	}
	if err := h.store.Finish(id, result, err); err != nil {
		logger.Warn("job evicted before finish", zap.Error(err))
	}
}

// Get returns one job with its result once complete.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}

// List returns job summaries without results.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.store.List()
	for i := range jobs {
		jobs[i].Result = nil
	}
	response.JSON(w, http.StatusOK, jobs)
}
