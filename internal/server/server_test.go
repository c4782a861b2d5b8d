package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/njbennett/changepoll/internal/config"
)

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(ctx context.Context) error { return p.err }

type stubCounter struct {
	count    int
	lastSync time.Time
}

func (c *stubCounter) Count() int            { return c.count }
func (c *stubCounter) LastSyncAt() time.Time { return c.lastSync }

func testServer(db Pinger, subs SubscriptionCounter) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(config.MetricsConfig{Port: 0, Path: "/metrics"}, db, subs, logger)
}

func TestHealthz(t *testing.T) {
	s := testServer(nil, nil)

	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "ok")
	}
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		lastSync := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		s := testServer(&stubPinger{}, &stubCounter{count: 3, lastSync: lastSync})

		rec := httptest.NewRecorder()
		s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var status map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if status["database"] != "ok" {
			t.Errorf("database = %v, want ok", status["database"])
		}
		if status["subscriptions"] != float64(3) {
			t.Errorf("subscriptions = %v, want 3", status["subscriptions"])
		}
		if status["last_sync_at"] != "2025-06-01T12:00:00Z" {
			t.Errorf("last_sync_at = %v", status["last_sync_at"])
		}
	})

	t.Run("database down", func(t *testing.T) {
		s := testServer(&stubPinger{err: errors.New("connection refused")}, nil)

		rec := httptest.NewRecorder()
		s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("nil collaborators are skipped", func(t *testing.T) {
		s := testServer(nil, nil)

		rec := httptest.NewRecorder()
		s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := testServer(nil, nil)

	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
