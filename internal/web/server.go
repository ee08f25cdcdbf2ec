// Package web provides the HTTP trigger surface for serve mode: a
// health check, an endpoint that starts a synchronization run, and the
// recorded run history.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/freightops/ordersync/internal/audit"
	"github.com/freightops/ordersync/internal/core"
	"github.com/freightops/ordersync/internal/logging"
)

// Runner executes one synchronization pass.
// Satisfied by *core.Pipeline.
type Runner interface {
	Run(ctx context.Context) (core.Summary, error)
}

// Server exposes the trigger API. At most one run is active at a time;
// concurrent triggers are rejected rather than queued.
type Server struct {
	runner   Runner
	recorder *audit.Recorder
	router   *chi.Mux

	mu      sync.Mutex
	running bool
}

// NewServer assembles the router. recorder may be nil.
func NewServer(runner Runner, recorder *audit.Recorder) *Server {
	s := &Server{
		runner:   runner,
		recorder: recorder,
		router:   chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/sync", s.handleSync)
		r.Get("/runs/latest", s.handleLatestRuns)
	})

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSync triggers a run and reports its summary. Responds 409 while
// another run is active: runs share the CRM session and the source
// cursor, so only one may execute at a time.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a sync run is already in progress"})
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	runID := uuid.New()
	logger := logging.WithFields(r.Context(), "run_id", runID)
	logger.Info("sync run triggered over HTTP")

	started := time.Now().UTC()
	summary, runErr := s.runner.Run(r.Context())
	finished := time.Now().UTC()

	rec := audit.RunRecord{
		ID:         runID,
		Trigger:    "http",
		StartedAt:  started,
		FinishedAt: finished,
		Total:      summary.Total,
		Skipped:    summary.Skipped,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
	}
	if runErr != nil {
		rec.Fatal = runErr.Error()
	}
	if err := s.recorder.RecordRun(r.Context(), rec); err != nil {
		logger.Error("failed to record run", "error", err)
	}

	if runErr != nil {
		logger.Error("sync run failed", "error", runErr)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"runId":   runID,
			"error":   runErr.Error(),
			"summary": summary,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runId":   runID,
		"summary": summary,
	})
}

func (s *Server) handleLatestRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.recorder.LatestRuns(r.Context(), 20)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load run history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load run history"})
		return
	}
	if runs == nil {
		runs = []audit.RunRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// ListenAndServe runs the HTTP server until ctx is canceled, then shuts
// down gracefully within the given timeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
