package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/sigma/internal/api/job"
	"github.com/newthinker/sigma/internal/api/response"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedRunner blocks every run until release is closed.
type gatedRunner struct {
	release chan struct{}
	err     error
}

func (g *gatedRunner) Analyze(ctx context.Context, req pipeline.Request) (*pipeline.Report, error) {
	<-g.release
	if g.err != nil {
		return nil, g.err
	}
	return &pipeline.Report{RunID: "job-run", Assets: req.Assets}, nil
}

func (g *gatedRunner) Optimize(ctx context.Context, req pipeline.Request) (*pipeline.OptimizationReport, error) {
	<-g.release
	if g.err != nil {
		return nil, g.err
	}
	return &pipeline.OptimizationReport{Observations: 42}, nil
}

func newJobMux(runner Runner, store *job.Store) *http.ServeMux {
	h := NewJobHandler(NewAnalysisHandler(runner, defaults), store, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/jobs/{type}", h.Create)
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.Get)
	mux.HandleFunc("GET /api/v1/jobs", h.List)
	return mux
}

func createJob(t *testing.T, mux http.Handler, path, body string) string {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "pending", data["status"])
	return data["job_id"].(string)
}

func waitFor(t *testing.T, store *job.Store, id string, status job.Status) job.Job {
	t.Helper()
	var got job.Job
	require.Eventually(t, func() bool {
		var err error
		got, err = store.Get(id)
		return err == nil && got.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestJobHandler_Analyze(t *testing.T) {
	runner := &gatedRunner{release: make(chan struct{})}
	store := job.NewStore(10, time.Hour)
	mux := newJobMux(runner, store)

	id := createJob(t, mux, "/api/v1/jobs/analyze", `{"assets":["solana"]}`)
	waitFor(t, store, id, job.StatusRunning)

	close(runner.release)
	got := waitFor(t, store, id, job.StatusComplete)
	report := got.Result.(*pipeline.Report)
	assert.Equal(t, []string{"solana"}, report.Assets)

	req := httptest.NewRequest("GET", "/api/v1/jobs/"+id, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run_id":"job-run"`)
	assert.Contains(t, w.Body.String(), `"status":"complete"`)
}

func TestJobHandler_OptimizeFailure(t *testing.T) {
	runner := &gatedRunner{release: make(chan struct{}), err: core.Errorf(core.ErrDegenerateInput, "flat")}
	close(runner.release)
	store := job.NewStore(10, time.Hour)
	mux := newJobMux(runner, store)

	id := createJob(t, mux, "/api/v1/jobs/optimize", "")
	got := waitFor(t, store, id, job.StatusFailed)
	require.NotNil(t, got.Error)
	assert.Equal(t, "DEGENERATE_INPUT", got.Error.Code)
	assert.Equal(t, JobOptimize, got.Type)
}

func TestJobHandler_List(t *testing.T) {
	runner := &gatedRunner{release: make(chan struct{})}
	close(runner.release)
	store := job.NewStore(10, time.Hour)
	mux := newJobMux(runner, store)

	id := createJob(t, mux, "/api/v1/jobs/analyze", "")
	waitFor(t, store, id, job.StatusComplete)

	req := httptest.NewRequest("GET", "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)
	assert.NotContains(t, w.Body.String(), "job-run")
}

func TestJobHandler_Errors(t *testing.T) {
	runner := &gatedRunner{release: make(chan struct{})}
	close(runner.release)
	mux := newJobMux(runner, job.NewStore(10, time.Hour))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown type", "POST", "/api/v1/jobs/backtest", "", http.StatusBadRequest},
		{"bad body", "POST", "/api/v1/jobs/analyze", `{"bogus":1}`, http.StatusBadRequest},
		{"too few days", "POST", "/api/v1/jobs/analyze", `{"days":1}`, http.StatusBadRequest},
		{"missing job", "GET", "/api/v1/jobs/nope", "", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}
