package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlexplain/internal/state"
	"github.com/leapstack-labs/sqlexplain/internal/testutil"
	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

type fakeExplainer struct {
	err      error
	question string
	steps    []core.Step
}

func (f *fakeExplainer) ExplainSteps(_ context.Context, question string, steps []core.Step) ([][]core.ExplanationRecord, error) {
	f.question = question
	f.steps = steps
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]core.ExplanationRecord, len(steps))
	for i := range steps {
		out[i] = []core.ExplanationRecord{
			core.NewRecord(core.CategoryFilter, core.ExplanationUnit{
				ID: fmt.Sprintf("f%d", i), Kind: core.UnitFilter, Expression: "a > 1",
			}, "Keeps rows where a exceeds one."),
		}
	}
	return out, nil
}

const requestBody = `{
	"question": "Which rows are large?",
	"steps": [
		{"sql": "SELECT a FROM t WHERE a > 1", "summary": "large rows", "cte_name": "big",
		 "sql_analysis_results": [{"filter": {"type": "EXPR", "node": "a > 1", "id": "f0"}}]},
		{"sql": "SELECT * FROM big", "sql_analysis_results": []}
	]
}`

func newTestServer(t *testing.T, explainer StepsExplainer, store state.Store) http.Handler {
	t.Helper()
	return New(Config{
		Explainer: explainer,
		Store:     store,
		Logger:    testutil.NewTestLogger(t),
		Provider:  "replay",
		Model:     "fixture",
	}).Handler()
}

func newStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	s, err := state.OpenSQLite(context.Background(), ":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, reader))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	rr := do(t, newTestServer(t, &fakeExplainer{}, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode(t, rr)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeExplainer{}, nil)
	do(t, h, http.MethodGet, "/healthz", "")

	rr := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `sqlexplain_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestCreateExplanation_WithoutHistory(t *testing.T) {
	fake := &fakeExplainer{}
	rr := do(t, newTestServer(t, fake, nil), http.MethodPost, "/v1/sql-explanations", requestBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decode(t, rr)
	assert.NotContains(t, body, "id")
	results := body["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].([]any)[0].(map[string]any)
	assert.Equal(t, "filter", first["type"])

	assert.Equal(t, "Which rows are large?", fake.question)
	require.Len(t, fake.steps, 2)
	assert.Equal(t, "big", fake.steps[0].CTEName)
	require.Len(t, fake.steps[0].AnalysisResults, 1)
	assert.NotNil(t, fake.steps[0].AnalysisResults[0].Filter)
}

func TestCreateExplanation_SavesRun(t *testing.T) {
	store := newStore(t)
	h := newTestServer(t, &fakeExplainer{}, store)

	rr := do(t, h, http.MethodPost, "/v1/sql-explanations", requestBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	id, _ := decode(t, rr)["id"].(string)
	require.NotEmpty(t, id)

	rr = do(t, h, http.MethodGet, "/v1/sql-explanations/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	run := decode(t, rr)
	assert.Equal(t, id, run["id"])
	assert.Equal(t, "Which rows are large?", run["question"])
	assert.Equal(t, "fixture", run["model"])
	steps := run["steps"].([]any)
	require.Len(t, steps, 2)
	assert.Equal(t, "big", steps[0].(map[string]any)["cte_name"])
	assert.Len(t, run["results"].([]any), 2)

	rr = do(t, h, http.MethodGet, "/v1/sql-explanations?limit=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	runs := decode(t, rr)["runs"].([]any)
	require.Len(t, runs, 1)
	assert.EqualValues(t, 2, runs[0].(map[string]any)["record_count"])

	rr = do(t, h, http.MethodDelete, "/v1/sql-explanations/"+id, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/sql-explanations/"+id, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rr)["error_code"])
}

func TestCreateExplanation_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"steps": [`},
		{"no steps", `{"question": "q", "steps": []}`},
		{"invalid analysis", `{"steps": [{"sql": "x", "sql_analysis_results": [{"sortings": "oops"}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, newTestServer(t, &fakeExplainer{}, nil), http.MethodPost, "/v1/sql-explanations", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			body := decode(t, rr)
			assert.Equal(t, "INVALID_BODY", body["error_code"])
			assert.NotEmpty(t, body["request_id"])
		})
	}
}

func TestCreateExplanation_ExplainerFails(t *testing.T) {
	rr := do(t, newTestServer(t, &fakeExplainer{err: errors.New("render failed")}, nil),
		http.MethodPost, "/v1/sql-explanations", requestBody)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "EXPLAIN_FAILED", decode(t, rr)["error_code"])
}

func TestHistoryDisabled(t *testing.T) {
	h := newTestServer(t, &fakeExplainer{}, nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/sql-explanations"},
		{http.MethodGet, "/v1/sql-explanations/abc"},
		{http.MethodDelete, "/v1/sql-explanations/abc"},
	} {
		rr := do(t, h, tc.method, tc.path, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, tc.path)
		assert.Equal(t, "HISTORY_DISABLED", decode(t, rr)["error_code"])
	}
}

func TestListExplanations_InvalidLimit(t *testing.T) {
	rr := do(t, newTestServer(t, &fakeExplainer{}, newStore(t)), http.MethodGet, "/v1/sql-explanations?limit=-3", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServeListener_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(Config{Explainer: &fakeExplainer{}, Logger: testutil.NewTestLogger(t), ShutdownTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx // test helper
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
