package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retailtools/catalogcheck/internal/store/memory"
	"github.com/retailtools/catalogcheck/internal/validator"
)

type fakeIDGen struct {
	ids []string
	n   int
}

func (g *fakeIDGen) NewID() (string, error) {
	if g.n >= len(g.ids) {
		return fmt.Sprintf("run-%d", g.n), nil
	}
	id := g.ids[g.n]
	g.n++
	return id, nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// fakePipeline turns every sku into a fixed row. block, when non-nil, is
// awaited before each row so tests can observe a running batch.
type fakePipeline struct {
	rows  map[string]validator.Result
	block chan struct{}
}

func (p *fakePipeline) Run(ctx context.Context, skus []string, hook func(validator.Result)) ([]validator.Result, error) {
	var out []validator.Result
	for _, s := range skus {
		if p.block != nil {
			select {
			case <-p.block:
			case <-ctx.Done():
				return out, ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		row, ok := p.rows[s]
		if !ok {
			row = validator.Result{SKU: s, Mode: validator.ModeNone, Source: "none"}
		}
		out = append(out, row)
		if hook != nil {
			hook(row)
		}
	}
	return out, nil
}

func newTestServer(pipeline Pipeline, opts Options) (*Server, *memory.RunStore) {
	store := memory.NewRunStore()
	factory := func(RunParams) (Pipeline, func(), error) {
		return pipeline, func() {}, nil
	}
	srv := NewServer(store, factory, &fakeIDGen{ids: []string{"run-a"}},
		&fakeClock{now: time.Unix(100, 0).UTC()}, opts, zap.NewNop())
	return srv, store
}

func submit(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func waitForStatus(t *testing.T, srv *Server, runID, want string) validator.Run {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/v1/runs/"+runID+"/status", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var payload struct {
			Run validator.Run `json:"run"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		if payload.Run.Status == want {
			return payload.Run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s never reached status %s", runID, want)
	return validator.Run{}
}

func TestSubmitRunValidation(t *testing.T) {
	srv, _ := newTestServer(&fakePipeline{}, Options{})

	t.Run("invalid JSON", func(t *testing.T) {
		rec := submit(t, srv, `{`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no skus", func(t *testing.T) {
		rec := submit(t, srv, `{"skus":["  ", ""]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("batch too large", func(t *testing.T) {
		small, _ := newTestServer(&fakePipeline{}, Options{MaxBatchSize: 1})
		rec := submit(t, small, `{"skus":["A","B"]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRunLifecycle(t *testing.T) {
	pipeline := &fakePipeline{rows: map[string]validator.Result{
		"A": {SKU: "A", Cataloged: true, CleanCrumbs: []string{"Despensa", "Arroz"}, Source: "jsonld_breadcrumb", Mode: "http"},
		"B": {SKU: "B", Observation: "not found / no HTML", Source: "none", Mode: "none"},
	}}
	srv, _ := newTestServer(pipeline, Options{})

	rec := submit(t, srv, `{"skus":["A","B"],"delay_ms":0}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "run-a", resp["run_id"])

	run := waitForStatus(t, srv, "run-a", validator.StatusSucceeded)
	require.Equal(t, validator.Counters{Total: 2, Processed: 2, Cataloged: 1, NotCataloged: 1}, run.Counters)

	t.Run("full result", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/runs/run-a/result", nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var payload struct {
			Rows    []validator.Result `json:"rows"`
			Summary map[string]int     `json:"summary"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
		require.Len(t, payload.Rows, 2)
		require.Equal(t, 1, payload.Summary["not_cataloged"])
	})

	t.Run("filtered result", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/runs/run-a/result?only_not_cataloged=1", nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		var payload struct {
			Rows []validator.Result `json:"rows"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
		require.Len(t, payload.Rows, 1)
		require.Equal(t, "B", payload.Rows[0].SKU)
	})

	t.Run("csv download", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/runs/run-a/csv", nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		require.Contains(t, w.Header().Get("Content-Disposition"), "catalogcheck_run-a.csv")
		require.Contains(t, w.Body.String(), "Despensa > Arroz")
	})
}

func TestCancelRun(t *testing.T) {
	pipeline := &fakePipeline{block: make(chan struct{})}
	srv, _ := newTestServer(pipeline, Options{})

	rec := submit(t, srv, `{"skus":["A","B"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForStatus(t, srv, "run-a", validator.StatusRunning)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs/run-a/cancel", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	waitForStatus(t, srv, "run-a", validator.StatusCanceled)
}

func TestRunNotFound(t *testing.T) {
	srv, _ := newTestServer(&fakePipeline{}, Options{})
	for _, path := range []string{"/v1/runs/nope/status", "/v1/runs/nope/result", "/v1/runs/nope/csv"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		require.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestAPIKeyGuard(t *testing.T) {
	srv, _ := newTestServer(&fakePipeline{}, Options{APIKey: "sekrit"})

	rec := submit(t, srv, `{"skus":["A"]}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader([]byte(`{"skus":["A"]}`)))
	req.Header.Set("X-API-Key", "sekrit")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	t.Run("health stays open", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestIndexPage(t *testing.T) {
	srv, _ := newTestServer(&fakePipeline{}, Options{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
	require.Contains(t, w.Body.String(), "/v1/runs")
}
