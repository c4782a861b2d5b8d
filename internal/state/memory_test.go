package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/njbennett/changepoll/internal/model"
)

func TestMemoryStoreSubscriptions(t *testing.T) {
	ctx := context.Background()

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		s := NewMemoryStore()
		if _, err := s.GetSubscription(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetSubscription() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("set last polled on missing returns ErrNotFound", func(t *testing.T) {
		s := NewMemoryStore()
		if err := s.SetLastPolled(ctx, "ghost", time.Now()); !errors.Is(err, ErrNotFound) {
			t.Errorf("SetLastPolled() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("put then get returns a copy", func(t *testing.T) {
		s := NewMemoryStore()
		s.Put(model.Subscription{TenantKey: "acme", Endpoints: []string{"people"}})

		got, err := s.GetSubscription(ctx, "acme")
		if err != nil {
			t.Fatalf("GetSubscription() error = %v", err)
		}

		got.LastPolled = time.Now()
		again, _ := s.GetSubscription(ctx, "acme")
		if !again.LastPolled.IsZero() {
			t.Error("mutating a returned subscription leaked into the store")
		}
	})

	t.Run("set last polled persists", func(t *testing.T) {
		s := NewMemoryStore()
		s.Put(model.Subscription{TenantKey: "acme"})

		at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		if err := s.SetLastPolled(ctx, "acme", at); err != nil {
			t.Fatalf("SetLastPolled() error = %v", err)
		}

		got, _ := s.GetSubscription(ctx, "acme")
		if !got.LastPolled.Equal(at) {
			t.Errorf("LastPolled = %v, want %v", got.LastPolled, at)
		}
	})

	t.Run("list returns all subscriptions", func(t *testing.T) {
		s := NewMemoryStore()
		s.Put(model.Subscription{TenantKey: "acme"})
		s.Put(model.Subscription{TenantKey: "globex"})

		subs, err := s.ListSubscriptions(ctx)
		if err != nil {
			t.Fatalf("ListSubscriptions() error = %v", err)
		}
		if len(subs) != 2 {
			t.Errorf("len = %d, want 2", len(subs))
		}
	})
}

func TestMemoryStoreEndpointMeta(t *testing.T) {
	ctx := context.Background()

	t.Run("never-polled endpoint yields empty meta", func(t *testing.T) {
		s := NewMemoryStore()
		meta, err := s.GetEndpointMeta(ctx, "acme", "people")
		if err != nil {
			t.Fatalf("GetEndpointMeta() error = %v", err)
		}
		if meta.LastPolled != nil {
			t.Errorf("LastPolled = %v, want nil", meta.LastPolled)
		}
		if len(meta.Seen) != 0 {
			t.Errorf("seen-set has %d entries, want 0", len(meta.Seen))
		}
	})

	t.Run("returned meta is a copy", func(t *testing.T) {
		s := NewMemoryStore()
		_ = s.RecordSeen(ctx, "acme", "people", "p-1", time.Now())

		meta, _ := s.GetEndpointMeta(ctx, "acme", "people")
		meta.Record("leak", time.Now())

		again, _ := s.GetEndpointMeta(ctx, "acme", "people")
		if again.HasSeen("leak") {
			t.Error("mutating a returned meta leaked into the store")
		}
	})

	t.Run("record seen keeps first-seen time", func(t *testing.T) {
		s := NewMemoryStore()
		first := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		later := first.Add(time.Hour)

		_ = s.RecordSeen(ctx, "acme", "people", "p-1", first)
		_ = s.RecordSeen(ctx, "acme", "people", "p-1", later)

		meta, _ := s.GetEndpointMeta(ctx, "acme", "people")
		if got := meta.Seen["p-1"]; !got.Equal(first) {
			t.Errorf("first-seen = %v, want %v", got, first)
		}
	})

	t.Run("endpoint last polled is scoped per endpoint", func(t *testing.T) {
		s := NewMemoryStore()
		at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		_ = s.SetEndpointLastPolled(ctx, "acme", "people", at)

		people, _ := s.GetEndpointMeta(ctx, "acme", "people")
		if people.LastPolled == nil || !people.LastPolled.Equal(at) {
			t.Errorf("people LastPolled = %v, want %v", people.LastPolled, at)
		}
		companies, _ := s.GetEndpointMeta(ctx, "acme", "companies")
		if companies.LastPolled != nil {
			t.Errorf("companies LastPolled = %v, want nil", companies.LastPolled)
		}
	})
}

func TestMemoryStorePruneSeen(t *testing.T) {
	ctx := context.Background()
	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	s := NewMemoryStore()
	_ = s.RecordSeen(ctx, "acme", "people", "old", cutoff.Add(-time.Hour))
	_ = s.RecordSeen(ctx, "acme", "people", "recent", cutoff.Add(time.Hour))

	removed, err := s.PruneSeen(ctx, "acme", "people", cutoff)
	if err != nil {
		t.Fatalf("PruneSeen() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	meta, _ := s.GetEndpointMeta(ctx, "acme", "people")
	if meta.HasSeen("old") {
		t.Error("old entry survived pruning")
	}
	if !meta.HasSeen("recent") {
		t.Error("recent entry was pruned")
	}

	t.Run("unknown endpoint prunes nothing", func(t *testing.T) {
		removed, err := s.PruneSeen(ctx, "acme", "companies", cutoff)
		if err != nil {
			t.Fatalf("PruneSeen() error = %v", err)
		}
		if removed != 0 {
			t.Errorf("removed = %d, want 0", removed)
		}
	})
}
