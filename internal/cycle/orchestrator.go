package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/njbennett/changepoll/internal/budget"
	"github.com/njbennett/changepoll/internal/classify"
	"github.com/njbennett/changepoll/internal/dispatch"
	"github.com/njbennett/changepoll/internal/metrics"
	"github.com/njbennett/changepoll/internal/model"
	"github.com/njbennett/changepoll/internal/state"
)

// EventRecorder receives every dispatched event for the durable journal.
// Recording is best-effort and must not block the cycle.
type EventRecorder interface {
	Record(event model.ClassifiedEvent)
}

// Config holds orchestrator settings.
type Config struct {
	// Concurrency bounds parallel endpoint fetches within one cycle.
	Concurrency int
}

// Orchestrator runs poll cycles. One instance serves all subscriptions;
// callers must not run two cycles for the same subscription concurrently.
type Orchestrator struct {
	cfg        Config
	guard      *budget.Guard
	store      state.Store
	clientFor  ClientFactory
	classifier *classify.Classifier
	dispatcher *dispatch.Dispatcher
	journal    EventRecorder // optional
	logger     *slog.Logger

	now func() time.Time
}

// New creates an Orchestrator. journal may be nil.
func New(
	cfg Config,
	guard *budget.Guard,
	store state.Store,
	clientFor ClientFactory,
	classifier *classify.Classifier,
	dispatcher *dispatch.Dispatcher,
	journal EventRecorder,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:        cfg,
		guard:      guard,
		store:      store,
		clientFor:  clientFor,
		classifier: classifier,
		dispatcher: dispatcher,
		journal:    journal,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// endpointOutcome captures one endpoint's settled result.
type endpointOutcome struct {
	fetchErr         error
	events           int
	created          int
	modified         int
	dispatchFailures int
}

// RunCycle runs one poll cycle for one subscription.
//
// A denied cycle returns budget.ErrRateLimited or
// budget.ErrAuthorizationRequired with no side effects. Once gating passes,
// the subscription's lastPolled is committed before any fetch, so even a
// cycle that fails everywhere still advances the rate-limit clock. Fetch
// and dispatch failures never surface as errors; they degrade the Report.
//
// Callers may pass a cached copy of the subscription; gating always reads
// the stored record, so a snapshot that predates another cycle's lastPolled
// commit cannot slip past the rate budget.
func (o *Orchestrator) RunCycle(ctx context.Context, sub *model.Subscription) (*Report, error) {
	started := o.now()

	// Gating: the store is authoritative for lastPolled and credentials.
	stored, err := o.store.GetSubscription(ctx, sub.TenantKey)
	if err != nil {
		return nil, fmt.Errorf("load subscription %s: %w", sub.TenantKey, err)
	}
	sub = stored

	if err := o.guard.CanPoll(sub); err != nil {
		o.logger.Info("poll cycle denied",
			"tenant", sub.TenantKey,
			"reason", err,
		)
		metrics.CyclesTotal.WithLabelValues(denialOutcome(err)).Inc()
		return nil, err
	}

	// Authorizing: advance the rate-limit clock before fetching. Without
	// this commit a subscription whose fetches always fail would retry on
	// every scheduler tick.
	if err := o.store.SetLastPolled(ctx, sub.TenantKey, started); err != nil {
		return nil, fmt.Errorf("commit last polled for %s: %w", sub.TenantKey, err)
	}
	sub.LastPolled = started

	fetcher := NewFetcher(o.clientFor(sub.Credential))

	// Fetching + Dispatching: one task per endpoint, settled individually.
	outcomes := make([]endpointOutcome, len(sub.Endpoints))

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Concurrency)
	for i, endpoint := range sub.Endpoints {
		i, endpoint := i, endpoint
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					outcomes[i].fetchErr = fmt.Errorf("endpoint panic: %v", r)
					o.logger.Error("endpoint task panic",
						"tenant", sub.TenantKey,
						"endpoint", endpoint,
						"panic", r,
						"stack", string(debug.Stack()),
					)
				}
			}()
			outcomes[i] = o.pollEndpoint(ctx, fetcher, sub, endpoint)
			return nil
		})
	}
	_ = g.Wait()

	// Finalizing
	report := &Report{
		TenantKey: sub.TenantKey,
		StartedAt: started,
		Duration:  o.now().Sub(started),
		Endpoints: len(sub.Endpoints),
	}
	for _, out := range outcomes {
		if out.fetchErr != nil {
			report.FetchFailures++
			continue
		}
		report.Fetched++
		report.Events += out.events
		report.New += out.created
		report.Modified += out.modified
		report.DispatchFailures += out.dispatchFailures
	}

	outcome := metrics.OutcomeCompleted
	if report.Degraded() {
		outcome = metrics.OutcomeDegraded
	}
	metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	metrics.CycleDuration.Observe(report.Duration.Seconds())

	o.logger.Info("poll cycle complete",
		"tenant", sub.TenantKey,
		"endpoints", report.Endpoints,
		"fetched", report.Fetched,
		"fetch_failures", report.FetchFailures,
		"events", report.Events,
		"new", report.New,
		"modified", report.Modified,
		"dispatch_failures", report.DispatchFailures,
		"duration", report.Duration,
	)

	return report, nil
}

// pollEndpoint runs the fetch/classify/dispatch pipeline for one endpoint.
// Every failure is captured in the outcome; nothing propagates.
func (o *Orchestrator) pollEndpoint(ctx context.Context, fetcher *Fetcher, sub *model.Subscription, endpoint string) endpointOutcome {
	var out endpointOutcome

	meta, err := o.store.GetEndpointMeta(ctx, sub.TenantKey, endpoint)
	if err != nil {
		out.fetchErr = fmt.Errorf("load endpoint meta: %w", err)
		o.logger.Warn("failed to load endpoint meta",
			"tenant", sub.TenantKey,
			"endpoint", endpoint,
			"err", err,
		)
		return out
	}

	res, err := fetcher.Fetch(ctx, endpoint, meta.LastPolled)
	if err != nil {
		// Endpoint state stays untouched: no lastPolled bump, no seen-set
		// mutation. Next cycle retries the same window.
		out.fetchErr = err
		metrics.FetchFailures.Inc()
		o.logger.Warn("failed to fetch endpoint",
			"tenant", sub.TenantKey,
			"endpoint", endpoint,
			"err", err,
		)
		return out
	}

	for _, entity := range res.Entities {
		change, err := o.classifier.Classify(ctx, sub.TenantKey, endpoint, entity, meta)
		if err != nil {
			// Seen-set persistence failed; the entity is still dispatched,
			// it just may classify the same way again next cycle.
			o.logger.Warn("failed to persist seen-set entry",
				"tenant", sub.TenantKey,
				"endpoint", endpoint,
				"entity_id", entity.ID,
				"err", err,
			)
		}
		metrics.EntitiesClassified.WithLabelValues(string(change)).Inc()

		event := model.ClassifiedEvent{
			ID: uuid.New(),
			Name: model.EventName{
				TenantKey:  sub.TenantKey,
				EntityKind: entity.Kind,
				Change:     change,
			},
			Endpoint:   endpoint,
			Entity:     entity,
			OccurredAt: o.now(),
		}

		if o.journal != nil {
			o.journal.Record(event)
		}

		out.events++
		if err := o.dispatcher.Dispatch(ctx, event); err != nil {
			out.dispatchFailures++
			metrics.DispatchFailures.Inc()
			continue
		}
		switch change {
		case model.ChangeNew:
			out.created++
		case model.ChangeModified:
			out.modified++
		}
	}

	if err := o.store.SetEndpointLastPolled(ctx, sub.TenantKey, endpoint, res.FetchedAt); err != nil {
		o.logger.Warn("failed to commit endpoint last polled",
			"tenant", sub.TenantKey,
			"endpoint", endpoint,
			"err", err,
		)
	}

	return out
}

// denialOutcome maps a gating error to its metrics label.
func denialOutcome(err error) string {
	if errors.Is(err, budget.ErrAuthorizationRequired) {
		return metrics.OutcomeAuthRequired
	}
	return metrics.OutcomeRateLimited
}
