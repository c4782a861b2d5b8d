package state

import (
	"context"
	"sync"
	"time"

	"github.com/njbennett/changepoll/internal/model"
)

// MemoryStore is an in-memory Store for tests and local development.
// Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	subs  map[string]*model.Subscription
	metas map[string]*model.EndpointMeta // keyed by tenantKey + "/" + endpoint
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs:  make(map[string]*model.Subscription),
		metas: make(map[string]*model.EndpointMeta),
	}
}

// Put adds or replaces a subscription. Not part of the Store contract;
// subscriptions are provisioned out of band.
func (s *MemoryStore) Put(sub model.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.TenantKey] = &sub
}

func (s *MemoryStore) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, *sub)
	}
	return out, nil
}

func (s *MemoryStore) GetSubscription(ctx context.Context, tenantKey string) (*model.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[tenantKey]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (s *MemoryStore) SetLastPolled(ctx context.Context, tenantKey string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[tenantKey]
	if !ok {
		return ErrNotFound
	}
	sub.LastPolled = at
	return nil
}

func (s *MemoryStore) GetEndpointMeta(ctx context.Context, tenantKey, endpoint string) (*model.EndpointMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.metas[metaKey(tenantKey, endpoint)]
	if !ok {
		return model.NewEndpointMeta(), nil
	}
	return copyMeta(meta), nil
}

func (s *MemoryStore) SetEndpointLastPolled(ctx context.Context, tenantKey, endpoint string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := s.meta(tenantKey, endpoint)
	meta.LastPolled = &at
	return nil
}

func (s *MemoryStore) RecordSeen(ctx context.Context, tenantKey, endpoint, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.meta(tenantKey, endpoint).Record(id, at)
	return nil
}

func (s *MemoryStore) PruneSeen(ctx context.Context, tenantKey, endpoint string, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.metas[metaKey(tenantKey, endpoint)]
	if !ok {
		return 0, nil
	}

	var removed int64
	for id, firstSeen := range meta.Seen {
		if firstSeen.Before(before) {
			delete(meta.Seen, id)
			removed++
		}
	}
	return removed, nil
}

// meta returns the live record for an endpoint, creating it lazily.
// Caller must hold the write lock.
func (s *MemoryStore) meta(tenantKey, endpoint string) *model.EndpointMeta {
	key := metaKey(tenantKey, endpoint)
	meta, ok := s.metas[key]
	if !ok {
		meta = model.NewEndpointMeta()
		s.metas[key] = meta
	}
	return meta
}

func metaKey(tenantKey, endpoint string) string {
	return tenantKey + "/" + endpoint
}

func copyMeta(meta *model.EndpointMeta) *model.EndpointMeta {
	out := model.NewEndpointMeta()
	if meta.LastPolled != nil {
		t := *meta.LastPolled
		out.LastPolled = &t
	}
	for id, at := range meta.Seen {
		out.Seen[id] = at
	}
	return out
}
