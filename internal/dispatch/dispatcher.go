package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/njbennett/changepoll/internal/model"
)

// Dispatcher formats and emits classified events. The event name string is
// assembled here and nowhere else; the rest of the engine passes the typed
// model.EventName around.
type Dispatcher struct {
	sink   Sink
	logger *slog.Logger
}

// New creates a Dispatcher over the given sink.
func New(sink Sink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sink: sink, logger: logger}
}

// Dispatch emits one event. A sink failure is logged and returned for
// counting; callers continue with their remaining events.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.ClassifiedEvent) error {
	name := event.Name.String()

	if err := d.sink.Emit(ctx, name, event.Entity.Fields); err != nil {
		d.logger.Warn("event dispatch failed",
			"event", name,
			"sink", d.sink.Name(),
			"entity_id", event.Entity.ID,
			"err", err,
		)
		return fmt.Errorf("emit %s: %w", name, err)
	}
	return nil
}
