// Package poller schedules poll cycles. It periodically offers every known
// subscription to the cycle engine; the rate-budget guard inside the engine
// decides which attempts actually run, so the tick can be much shorter than
// any subscription's minimum interval.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/njbennett/changepoll/internal/budget"
	"github.com/njbennett/changepoll/internal/cycle"
	"github.com/njbennett/changepoll/internal/model"
)

// CycleRunner runs one poll cycle for one subscription.
type CycleRunner interface {
	RunCycle(ctx context.Context, sub *model.Subscription) (*cycle.Report, error)
}

// SubscriptionSource provides the current subscription set.
type SubscriptionSource interface {
	Snapshot() []model.Subscription
}

// Config holds scheduler settings.
type Config struct {
	// Tick is how often subscriptions are offered to the engine.
	Tick time.Duration
}

// Scheduler drives cycles for all subscriptions. Per-endpoint metadata is
// written without locks inside a cycle, so the scheduler guarantees at most
// one in-flight cycle per subscription.
type Scheduler struct {
	cfg    Config
	runner CycleRunner
	subs   SubscriptionSource
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a Scheduler.
func New(cfg Config, runner CycleRunner, subs SubscriptionSource, logger *slog.Logger) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		runner:   runner,
		subs:     subs,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Start begins the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("scheduler started", "tick", s.cfg.Tick)
	return nil
}

// Stop halts the loop and waits for in-flight cycles to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main scheduling loop.
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	// Offer immediately on start.
	s.offerAll()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.offerAll()
		}
	}
}

// offerAll attempts a cycle for every subscription without an in-flight one.
func (s *Scheduler) offerAll() {
	for _, sub := range s.subs.Snapshot() {
		if !s.acquire(sub.TenantKey) {
			continue
		}

		s.wg.Add(1)
		go func(sub model.Subscription) {
			defer s.wg.Done()
			defer s.release(sub.TenantKey)

			_, err := s.runner.RunCycle(s.ctx, &sub)
			switch {
			case err == nil:
			case errors.Is(err, budget.ErrRateLimited):
				// Expected on most ticks; the guard already logged it.
			case errors.Is(err, budget.ErrAuthorizationRequired):
				s.logger.Warn("subscription needs authorization", "tenant", sub.TenantKey)
			default:
				s.logger.Error("cycle failed", "tenant", sub.TenantKey, "err", err)
			}
		}(sub)
	}
}

// acquire marks a subscription in-flight. Returns false if it already was.
func (s *Scheduler) acquire(tenantKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[tenantKey]; ok {
		return false
	}
	s.inflight[tenantKey] = struct{}{}
	return true
}

func (s *Scheduler) release(tenantKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, tenantKey)
}
