package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := NewClient("http://example.test")
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("timeout = %v, want 30s", c.httpClient.Timeout)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want 3", c.maxRetries)
		}
	})

	t.Run("with options", func(t *testing.T) {
		c := NewClient("http://example.test",
			WithTimeout(5*time.Second),
			WithRetries(1, 10*time.Millisecond),
		)
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("timeout = %v, want 5s", c.httpClient.Timeout)
		}
		if c.maxRetries != 1 {
			t.Errorf("maxRetries = %d, want 1", c.maxRetries)
		}
		if c.retryBackoff != 10*time.Millisecond {
			t.Errorf("retryBackoff = %v, want 10ms", c.retryBackoff)
		}
	})
}

func TestAuthorized(t *testing.T) {
	base := NewClient("http://example.test")
	bound := base.Authorized("tenant-token")

	if bound.cred != "tenant-token" {
		t.Errorf("bound credential = %q, want %q", bound.cred, "tenant-token")
	}
	if !base.cred.IsZero() {
		t.Errorf("base credential mutated to %q", base.cred)
	}
	if bound.httpClient != base.httpClient {
		t.Error("bound copy does not share the HTTP client")
	}
}

func TestGet(t *testing.T) {
	t.Run("sends auth and accept headers", func(t *testing.T) {
		var gotAuth, gotAccept string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotAccept = r.Header.Get("Accept")
			w.Write([]byte(`<people/>`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL).Authorized("secret")
		body, err := c.Get(context.Background(), "/people.xml", nil)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(body) != `<people/>` {
			t.Errorf("body = %q", body)
		}
		if gotAuth != "Bearer secret" {
			t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret")
		}
		if gotAccept != "application/xml" {
			t.Errorf("Accept = %q, want %q", gotAccept, "application/xml")
		}
	})

	t.Run("no auth header without credential", func(t *testing.T) {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`<people/>`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL)
		if _, err := c.Get(context.Background(), "/people.xml", nil); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if gotAuth != "" {
			t.Errorf("Authorization = %q, want empty", gotAuth)
		}
	})

	t.Run("encodes query parameters", func(t *testing.T) {
		var gotQuery url.Values
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			w.Write([]byte(`<people/>`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL)
		query := url.Values{"since": []string{"2025-06-01T12:00:00Z"}}
		if _, err := c.Get(context.Background(), "/people.xml", query); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got := gotQuery.Get("since"); got != "2025-06-01T12:00:00Z" {
			t.Errorf("since = %q, want %q", got, "2025-06-01T12:00:00Z")
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`<people/>`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, WithRetries(3, time.Millisecond))
		if _, err := c.Get(context.Background(), "/people.xml", nil); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("server called %d times, want 3", got)
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, WithRetries(3, time.Millisecond))
		_, err := c.Get(context.Background(), "/missing.xml", nil)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("Get() error = %v, want *APIError", err)
		}
		if apiErr.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("server called %d times, want 1", got)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, WithRetries(2, time.Millisecond))
		_, err := c.Get(context.Background(), "/people.xml", nil)
		if err == nil {
			t.Fatal("Get() error = nil, want error")
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("server called %d times, want 3", got)
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("Get() error = %v, want wrapped *APIError", err)
		}
		if !apiErr.IsRetryable() {
			t.Error("IsRetryable() = false for 429")
		}
	})
}

func TestAPIErrorIsRetryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusNotFound, false},
		{http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		e := &APIError{StatusCode: tt.status}
		if got := e.IsRetryable(); got != tt.want {
			t.Errorf("IsRetryable() for %d = %v, want %v", tt.status, got, tt.want)
		}
	}
}
