package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/newthinker/sigma/internal/api/response"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	got pipeline.Request
	err error
}

func (m *mockRunner) Analyze(ctx context.Context, req pipeline.Request) (*pipeline.Report, error) {
	m.got = req
	if m.err != nil {
		return nil, m.err
	}
	return &pipeline.Report{RunID: "run-1", Assets: req.Assets}, nil
}

func (m *mockRunner) Optimize(ctx context.Context, req pipeline.Request) (*pipeline.OptimizationReport, error) {
	m.got = req
	if m.err != nil {
		return nil, m.err
	}
	return &pipeline.OptimizationReport{
		MaxSharpe: pipeline.AllocationReport{Weights: map[string]float64{"bitcoin": 0.4, "ethereum": 0.6}},
	}, nil
}

var defaults = pipeline.Request{Assets: []string{"bitcoin", "ethereum"}, Days: 365}

func TestAnalysisHandler_Analyze_Defaults(t *testing.T) {
	runner := &mockRunner{}
	handler := NewAnalysisHandler(runner, defaults)

	req := httptest.NewRequest("POST", "/api/v1/analyze", nil)
	w := httptest.NewRecorder()
	handler.Analyze(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaults.Assets, runner.got.Assets)
	assert.Equal(t, 365, runner.got.Days)

	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "run-1", data["run_id"])
}

func TestAnalysisHandler_Analyze_Body(t *testing.T) {
	runner := &mockRunner{}
	handler := NewAnalysisHandler(runner, defaults)

	body := `{"assets":["solana"],"days":30,"target_return":0.002,"skip_optimization":true}`
	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.Analyze(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"solana"}, runner.got.Assets)
	assert.Equal(t, 30, runner.got.Days)
	require.NotNil(t, runner.got.TargetReturn)
	assert.Equal(t, 0.002, *runner.got.TargetReturn)
	assert.True(t, runner.got.SkipOptimization)
}

func TestAnalysisHandler_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"assets":`},
		{"unknown field", `{"symbol":"btc"}`},
		{"too few days", `{"days":1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewAnalysisHandler(&mockRunner{}, defaults)
			req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			handler.Analyze(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp response.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
		})
	}
}

func TestAnalysisHandler_Optimize(t *testing.T) {
	runner := &mockRunner{}
	handler := NewAnalysisHandler(runner, defaults)

	req := httptest.NewRequest("POST", "/api/v1/optimize", strings.NewReader(`{"assets":["bitcoin","ethereum"]}`))
	w := httptest.NewRecorder()
	handler.Optimize(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	weights := resp.Data.(map[string]any)["max_sharpe"].(map[string]any)["weights"].(map[string]any)
	assert.Equal(t, 0.6, weights["ethereum"])
}

func TestAnalysisHandler_PipelineErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{core.Errorf(core.ErrDegenerateInput, "constant"), http.StatusUnprocessableEntity},
		{core.Errorf(core.ErrCollectorFailed, "status 429"), http.StatusBadGateway},
		{core.ErrNoData, http.StatusNotFound},
	}

	for _, tc := range tests {
		handler := NewAnalysisHandler(&mockRunner{err: tc.err}, defaults)
		req := httptest.NewRequest("POST", "/api/v1/optimize", nil)
		w := httptest.NewRecorder()
		handler.Optimize(w, req)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}
}
