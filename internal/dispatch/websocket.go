package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/njbennett/changepoll/internal/config"
)

// Reconnect backoff bounds for the websocket sink.
const (
	wsReconnectBaseDelay = time.Second
	wsReconnectMaxDelay  = time.Minute
)

// websocketSink pushes events over a single outbound websocket connection.
// The connection is dialed lazily and redialed with exponential backoff
// after a write failure; an event that hits a dead connection fails and is
// surfaced to the caller like any other dispatch error.
type websocketSink struct {
	url    string
	logger *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	nextDial  time.Time
	dialDelay time.Duration
}

// NewWebsocketSink creates the websocket push sink.
func NewWebsocketSink(cfg config.WebsocketSinkConfig, logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &websocketSink{
		url:       cfg.URL,
		logger:    logger,
		dialDelay: wsReconnectBaseDelay,
	}
}

func (s *websocketSink) Name() string { return "websocket" }

func (s *websocketSink) Emit(ctx context.Context, eventName string, payload map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.connLocked(ctx)
	if err != nil {
		return err
	}

	msg := struct {
		Event   string            `json:"event"`
		Payload map[string]string `json:"payload"`
	}{Event: eventName, Payload: payload}

	if err := conn.WriteJSON(msg); err != nil {
		s.dropLocked()
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// connLocked returns the live connection, dialing if necessary.
// Caller must hold the mutex.
func (s *websocketSink) connLocked(ctx context.Context) (*websocket.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}

	if now := time.Now(); now.Before(s.nextDial) {
		return nil, fmt.Errorf("websocket reconnect backoff until %s", s.nextDial.Format(time.RFC3339))
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		s.nextDial = time.Now().Add(s.dialDelay)
		s.dialDelay *= 2
		if s.dialDelay > wsReconnectMaxDelay {
			s.dialDelay = wsReconnectMaxDelay
		}
		return nil, fmt.Errorf("dial %s: %w", s.url, err)
	}

	s.logger.Info("websocket sink connected", "url", s.url)
	s.conn = conn
	s.dialDelay = wsReconnectBaseDelay
	s.nextDial = time.Time{}
	return conn, nil
}

// dropLocked discards a broken connection so the next emit redials.
// Caller must hold the mutex.
func (s *websocketSink) dropLocked() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.nextDial = time.Now().Add(s.dialDelay)
}
