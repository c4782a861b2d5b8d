package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/njbennett/changepoll/internal/model"
	"github.com/njbennett/changepoll/internal/queue"
)

// Schema creates the journal table if it does not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS event_journal (
	event_id    UUID PRIMARY KEY,
	tenant_key  TEXT NOT NULL,
	endpoint    TEXT NOT NULL,
	entity_id   TEXT NOT NULL DEFAULT '',
	entity_kind TEXT NOT NULL,
	change      TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	payload     JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE INDEX IF NOT EXISTS event_journal_tenant_occurred_idx
	ON event_journal (tenant_key, occurred_at);
`

// Config holds journal writer settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// Stats are cumulative writer counters.
type Stats struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
}

// journalRow is the flattened insert shape.
type journalRow struct {
	EventID    string
	TenantKey  string
	Endpoint   string
	EntityID   string
	EntityKind string
	Change     string
	OccurredAt time.Time
	Payload    []byte
}

// Writer consumes classified events from a buffer and writes them to the
// event_journal table in batches.
type Writer struct {
	cfg    Config
	logger *slog.Logger

	input *queue.Buffer[model.ClassifiedEvent]
	db    *pgxpool.Pool

	batch   []journalRow
	batchMu sync.Mutex

	flushTicker *time.Ticker
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	stats Stats
}

// NewWriter creates a journal Writer.
func NewWriter(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  queue.NewBuffer[model.ClassifiedEvent](cfg.BufferSize),
		batch:  make([]journalRow, 0, cfg.BatchSize),
	}
}

// EnsureSchema creates the journal table if needed.
func (w *Writer) EnsureSchema(ctx context.Context) error {
	_, err := w.db.Exec(ctx, Schema)
	return err
}

// Record enqueues one event. Never blocks; the buffer grows instead.
// Implements cycle.EventRecorder.
func (w *Writer) Record(event model.ClassifiedEvent) {
	w.input.Send(event)
}

// Start begins consuming events and writing batches.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains the buffer into a final flush. Closing the input lets the
// consume loop finish whatever was recorded before shutdown; only then is
// the remaining batch written.
func (w *Writer) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}
	w.input.Close()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("journal writer stopped")
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
	}

	w.flush()
	return nil
}

// Stats returns current counters.
func (w *Writer) Stats() Stats {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.stats
}

// consumeLoop drains the buffer into the pending batch. It exits only once
// the buffer is closed and empty, so every recorded event reaches a batch
// before shutdown's final flush.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		event, ok := w.input.Receive()
		if !ok {
			return
		}
		w.handleEvent(event)
	}
}

// flushLoop flushes the batch on the configured interval.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

func (w *Writer) handleEvent(event model.ClassifiedEvent) {
	row := w.transform(event)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transform flattens an event into its insert row.
func (w *Writer) transform(event model.ClassifiedEvent) journalRow {
	payload, err := json.Marshal(event.Entity.Fields)
	if err != nil || len(payload) == 0 || string(payload) == "null" {
		payload = []byte("{}")
	}
	return journalRow{
		EventID:    event.ID.String(),
		TenantKey:  event.Name.TenantKey,
		Endpoint:   event.Endpoint,
		EntityID:   event.Entity.ID,
		EntityKind: event.Entity.Kind,
		Change:     string(event.Name.Change),
		OccurredAt: event.OccurredAt,
		Payload:    payload,
	}
}

// flush writes the pending batch.
func (w *Writer) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	batch := w.batch
	w.batch = make([]journalRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(batch)
	if err != nil {
		w.logger.Error("journal batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.stats.Inserts += int64(len(batch) - conflicts)
	w.stats.Conflicts += int64(conflicts)
	w.stats.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed journal",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows with pgx.Batch; replays hit the event_id
// conflict and are skipped.
func (w *Writer) batchInsert(rows []journalRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO event_journal (event_id, tenant_key, endpoint, entity_id, entity_kind, change, occurred_at, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (event_id) DO NOTHING
		`, r.EventID, r.TenantKey, r.Endpoint, r.EntityID, r.EntityKind, r.Change, r.OccurredAt, r.Payload)
	}

	results := w.db.SendBatch(context.Background(), batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
