// Package api exposes the HTTP interface for the catalog validation
// service: run submission, progress, results and the browser form.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/retailtools/catalogcheck/internal/metrics"
	"github.com/retailtools/catalogcheck/internal/report"
	"github.com/retailtools/catalogcheck/internal/store/memory"
	"github.com/retailtools/catalogcheck/internal/validator"
)

// RunParams carries one submitted batch.
type RunParams struct {
	SKUs         []string
	CookieHeader string
	Delay        time.Duration
	Headless     *bool
	UseAPI       *bool
}

// Pipeline is what a run executes. *validator.Runner satisfies it.
type Pipeline interface {
	Run(ctx context.Context, skus []string, hook func(validator.Result)) ([]validator.Result, error)
}

// PipelineFactory builds a pipeline for one run. The returned cleanup is
// called when the run finishes, whatever the outcome.
type PipelineFactory func(p RunParams) (Pipeline, func(), error)

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Options tune the server beyond its dependencies.
type Options struct {
	APIKey         string
	RequestTimeout time.Duration
	MaxBatchSize   int
}

// Server wires HTTP handlers to the run store and pipeline factory.
type Server struct {
	router      chi.Router
	store       *memory.RunStore
	newPipeline PipelineFactory
	idGen       IDGenerator
	clock       validator.Clock
	opts        Options
	logger      *zap.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	store *memory.RunStore,
	factory PipelineFactory,
	idGen IDGenerator,
	clock validator.Clock,
	opts Options,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 500
	}
	s := &Server{
		store:       store,
		newPipeline: factory,
		idGen:       idGen,
		clock:       clock,
		opts:        opts,
		logger:      logger,
		cancels:     make(map[string]context.CancelFunc),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(opts.RequestTimeout))

	r.Get("/", s.index)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if opts.APIKey != "" {
			r.Use(apiKeyMiddleware(opts.APIKey))
		}
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.submitRun)
			r.Route("/{run_id}", func(r chi.Router) {
				r.Get("/status", s.getRunStatus)
				r.Get("/result", s.getRunResult)
				r.Get("/csv", s.getRunCSV)
				r.Post("/cancel", s.cancelRun)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// everything is in-process; ready as soon as the router is up
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitRunRequest struct {
	SKUs         []string `json:"skus"`
	CookieHeader string   `json:"cookie_header"`
	DelayMS      *int     `json:"delay_ms"`
	Headless     *bool    `json:"headless"`
	UseAPI       *bool    `json:"use_api"`
}

func (s *Server) submitRun(w http.ResponseWriter, r *http.Request) {
	var req submitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	skus := compactSKUs(req.SKUs)
	if len(skus) == 0 {
		writeError(w, http.StatusBadRequest, "at least one sku required")
		return
	}
	if len(skus) > s.opts.MaxBatchSize {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("batch of %d exceeds limit of %d", len(skus), s.opts.MaxBatchSize))
		return
	}

	params := RunParams{
		SKUs:         skus,
		CookieHeader: req.CookieHeader,
		Headless:     req.Headless,
		UseAPI:       req.UseAPI,
	}
	if req.DelayMS != nil && *req.DelayMS >= 0 {
		params.Delay = time.Duration(*req.DelayMS) * time.Millisecond
	}

	pipeline, cleanup, err := s.newPipeline(params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	runID, err := s.idGen.NewID()
	if err != nil {
		cleanup()
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("generate run id: %v", err))
		return
	}
	run := validator.Run{
		ID:          runID,
		Status:      validator.StatusQueued,
		SubmittedAt: s.clock.Now(),
		Counters:    validator.Counters{Total: len(skus)},
	}
	if err := s.store.CreateRun(r.Context(), run); err != nil {
		cleanup()
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("create run: %v", err))
		return
	}

	go s.executeRun(run, skus, pipeline, cleanup)

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

// executeRun drives one batch to completion in the background. The
// identifiers inside the run stay strictly sequential.
func (s *Server) executeRun(run validator.Run, skus []string, pipeline Pipeline, cleanup func()) {
	ctx, cancel := context.WithCancel(context.Background())
	s.registerCancel(run.ID, cancel)
	defer s.unregisterCancel(run.ID)
	defer cleanup()

	run.Status = validator.StatusRunning
	run.StartedAt = s.clock.Now()
	if err := s.store.UpdateRun(ctx, run); err != nil {
		s.logger.Error("mark run running failed", zap.String("run_id", run.ID), zap.Error(err))
		return
	}

	_, runErr := pipeline.Run(ctx, skus, func(row validator.Result) {
		if err := s.store.AppendRow(context.Background(), run.ID, row); err != nil {
			s.logger.Error("append row failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	})

	final := validator.StatusSucceeded
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || ctx.Err() != nil {
			final = validator.StatusCanceled
		} else {
			// the pipeline degrades scrape failures to rows, so anything
			// else reaching here still ends the run cleanly
			s.logger.Warn("run ended early", zap.String("run_id", run.ID), zap.Error(runErr))
			final = validator.StatusCanceled
		}
	}

	current, err := s.store.GetRun(context.Background(), run.ID)
	if err != nil {
		s.logger.Error("load run for finish failed", zap.String("run_id", run.ID), zap.Error(err))
		return
	}
	current.Status = final
	current.FinishedAt = s.clock.Now()
	if err := s.store.UpdateRun(context.Background(), current); err != nil {
		s.logger.Error("finish run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
	metrics.ObserveRun(final)
	s.logger.Info("run finished",
		zap.String("run_id", run.ID),
		zap.String("status", final),
		zap.Int("processed", current.Counters.Processed),
		zap.Int("not_cataloged", current.Counters.NotCataloged),
	)
}

func (s *Server) getRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *Server) getRunResult(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	rows, err := s.store.ListRows(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch rows")
		return
	}

	rep := report.New()
	for _, row := range rows {
		rep.Add(row)
	}
	if r.URL.Query().Get("only_not_cataloged") == "1" {
		rows = rep.NotCataloged()
	}
	if rows == nil {
		rows = []validator.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run":     run,
		"summary": rep.Summary(),
		"rows":    rows,
	})
}

func (s *Server) getRunCSV(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	rows, err := s.store.ListRows(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	rep := report.New()
	for _, row := range rows {
		rep.Add(row)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "catalogcheck_"+runID+".csv"))
	if err := rep.WriteCSV(w); err != nil {
		s.logger.Error("write csv failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if run.Status == validator.StatusSucceeded || run.Status == validator.StatusCanceled {
		writeJSON(w, http.StatusOK, map[string]string{"run_id": runID, "status": run.Status})
		return
	}

	s.mu.Lock()
	cancel, ok := s.cancels[runID]
	s.mu.Unlock()
	if ok {
		cancel()
	} else {
		// queued but never started; finalize directly
		run.Status = validator.StatusCanceled
		run.FinishedAt = s.clock.Now()
		if err := s.store.UpdateRun(r.Context(), run); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"run_id": runID, "status": validator.StatusCanceled})
}

func (s *Server) registerCancel(runID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels[runID] = cancel
}

func (s *Server) unregisterCancel(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancels, runID)
}

func compactSKUs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
