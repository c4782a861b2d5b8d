package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/njbennett/changepoll/internal/config"
)

// Sink is the downstream consumer contract: emit one named event with an
// opaque payload. Implementations must be safe for concurrent use.
type Sink interface {
	Name() string
	Emit(ctx context.Context, eventName string, payload map[string]string) error
}

// NewSink builds the sink selected by config.
func NewSink(cfg config.DispatchConfig, logger *slog.Logger) (Sink, error) {
	switch cfg.Sink {
	case "log", "":
		return NewLogSink(logger), nil
	case "webhook":
		return NewWebhookSink(cfg.Webhook), nil
	case "redis":
		return NewRedisSink(cfg.Redis), nil
	case "websocket":
		return NewWebsocketSink(cfg.Websocket, logger), nil
	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
}
