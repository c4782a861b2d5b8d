package dispatch

import (
	"context"
	"log/slog"
)

// logSink writes events to the structured log. Default sink; useful for
// local development and as a dead-simple tap in production.
type logSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs each event at INFO.
func NewLogSink(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &logSink{logger: logger}
}

func (s *logSink) Name() string { return "log" }

func (s *logSink) Emit(ctx context.Context, eventName string, payload map[string]string) error {
	s.logger.Info("event", "name", eventName, "fields", len(payload))
	return nil
}
