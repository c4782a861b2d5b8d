// Package registry keeps an in-memory snapshot of the subscriptions the
// scheduler drives. The state store stays authoritative; the registry
// reloads it on an interval so subscriptions provisioned or retired out of
// band are picked up without a restart.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/njbennett/changepoll/internal/model"
	"github.com/njbennett/changepoll/internal/state"
)

// Config holds registry settings.
type Config struct {
	ReconcileInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{ReconcileInterval: 5 * time.Minute}
}

// Registry caches subscriptions from the state store.
type Registry struct {
	cfg    Config
	store  state.Store
	logger *slog.Logger

	mu         sync.RWMutex
	subs       map[string]model.Subscription
	lastSyncAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Registry.
func New(cfg Config, store state.Store, logger *slog.Logger) *Registry {
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = DefaultConfig().ReconcileInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		cfg:    cfg,
		store:  store,
		logger: logger,
		subs:   make(map[string]model.Subscription),
	}
}

// Start performs the initial load (blocking) and begins background
// reconciliation.
func (r *Registry) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	if err := r.reload(r.ctx); err != nil {
		r.cancel()
		return err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.reconcileLoop(r.ctx)
	}()

	r.logger.Info("subscription registry started",
		"subscriptions", r.Count(),
		"reconcile_interval", r.cfg.ReconcileInterval,
	)
	return nil
}

// Stop halts reconciliation.
func (r *Registry) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of all known subscriptions.
func (r *Registry) Snapshot() []model.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub)
	}
	return out
}

// Count returns the number of known subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// LastSyncAt returns the time of the last successful reload.
func (r *Registry) LastSyncAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSyncAt
}

// reconcileLoop reloads subscriptions on an interval. A failed reload keeps
// the previous snapshot; the scheduler keeps working with what it has.
func (r *Registry) reconcileLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.reload(ctx); err != nil {
				r.logger.Warn("subscription reconcile failed", "err", err)
			}
		}
	}
}

// reload replaces the snapshot from the store.
func (r *Registry) reload(ctx context.Context) error {
	subs, err := r.store.ListSubscriptions(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]model.Subscription, len(subs))
	for _, sub := range subs {
		next[sub.TenantKey] = sub
	}

	r.mu.Lock()
	r.subs = next
	r.lastSyncAt = time.Now()
	r.mu.Unlock()

	r.logger.Debug("subscriptions reloaded", "count", len(next))
	return nil
}
