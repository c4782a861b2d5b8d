// Package server exposes the ops HTTP surface: liveness, readiness, and
// Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/njbennett/changepoll/internal/config"
	"github.com/njbennett/changepoll/internal/version"
)

// Pinger reports database health for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SubscriptionCounter reports how many subscriptions are registered.
type SubscriptionCounter interface {
	Count() int
	LastSyncAt() time.Time
}

// Server is the ops HTTP server.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New creates the ops server. db and subs may be nil; the readiness probe
// then skips the corresponding check.
func New(cfg config.MetricsConfig, db Pinger, subs SubscriptionCounter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		status := map[string]any{
			"version": version.Version,
		}

		if db != nil {
			if err := db.Ping(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				status["database"] = err.Error()
				_ = json.NewEncoder(w).Encode(status)
				return
			}
			status["database"] = "ok"
		}
		if subs != nil {
			status["subscriptions"] = subs.Count()
			if last := subs.LastSyncAt(); !last.IsZero() {
				status["last_sync_at"] = last.UTC().Format(time.RFC3339)
			}
		}

		_ = json.NewEncoder(w).Encode(status)
	})

	r.Handle(cfg.Path, promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: r,
		},
		logger: logger,
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("ops server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("ops server failed", "err", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
