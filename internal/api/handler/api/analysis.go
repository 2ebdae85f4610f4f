package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/newthinker/sigma/internal/api/response"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/pipeline"
)

// AnalysisTimeout bounds one analysis or optimization request.
const AnalysisTimeout = 2 * time.Minute

// Runner defines the interface needed from pipeline.Pipeline.
type Runner interface {
	Analyze(ctx context.Context, req pipeline.Request) (*pipeline.Report, error)
	Optimize(ctx context.Context, req pipeline.Request) (*pipeline.OptimizationReport, error)
}

// AnalysisHandler handles analysis and optimization API requests.
type AnalysisHandler struct {
	runner   Runner
	defaults pipeline.Request
}

// NewAnalysisHandler creates a new analysis handler. Fields missing from a
// request body are taken from defaults.
func NewAnalysisHandler(runner Runner, defaults pipeline.Request) *AnalysisHandler {
	return &AnalysisHandler{runner: runner, defaults: defaults}
}

// Analyze runs the full pipeline and returns its report.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(r)
	if err != nil {
		response.FromError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), AnalysisTimeout)
	defer cancel()

	report, err := h.runner.Analyze(ctx, req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, report)
}

// Optimize runs only the portfolio optimizer.
func (h *AnalysisHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(r)
	if err != nil {
		response.FromError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), AnalysisTimeout)
	defer cancel()

	report, err := h.runner.Optimize(ctx, req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, report)
}

func (h *AnalysisHandler) decode(r *http.Request) (pipeline.Request, error) {
	var req pipeline.Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return pipeline.Request{}, core.WrapError(core.ErrInvalidInput, err)
	}

	if len(req.Assets) == 0 {
		req.Assets = h.defaults.Assets
	}
	if req.Days == 0 {
		req.Days = h.defaults.Days
	}
	if req.TargetReturn == nil {
		req.TargetReturn = h.defaults.TargetReturn
	}
	if req.Days < 2 {
		return pipeline.Request{}, core.Errorf(core.ErrInvalidInput, "days must be at least 2, got %d", req.Days)
	}
	return req, nil
}
