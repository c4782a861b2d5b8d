package state

import (
	"context"
	"errors"
	"time"

	"github.com/njbennett/changepoll/internal/model"
)

// ErrNotFound is returned when a subscription does not exist.
var ErrNotFound = errors.New("subscription not found")

// Store is the persistence contract for subscription poll state.
//
// Writes must be durable before they return: the next cycle's gating check
// and dedup decisions rely on what previous cycles committed. Implementations
// must be safe for concurrent use across subscriptions; callers guarantee at
// most one in-flight cycle per subscription.
type Store interface {
	// ListSubscriptions returns all known subscriptions.
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)

	// GetSubscription returns one subscription, or ErrNotFound.
	GetSubscription(ctx context.Context, tenantKey string) (*model.Subscription, error)

	// SetLastPolled commits the subscription-level cycle start time.
	SetLastPolled(ctx context.Context, tenantKey string, at time.Time) error

	// GetEndpointMeta returns the dedup record for one endpoint. An
	// endpoint that was never polled yields an empty record (nil
	// LastPolled, empty seen-set), never an error.
	GetEndpointMeta(ctx context.Context, tenantKey, endpoint string) (*model.EndpointMeta, error)

	// SetEndpointLastPolled commits an endpoint's fetch-start time after
	// its entities were processed.
	SetEndpointLastPolled(ctx context.Context, tenantKey, endpoint string, at time.Time) error

	// RecordSeen durably appends one identifier to an endpoint's seen-set.
	// Recording an already-known identifier is a no-op.
	RecordSeen(ctx context.Context, tenantKey, endpoint, id string, at time.Time) error

	// PruneSeen removes seen identifiers first recorded before the cutoff
	// and reports how many were removed. Operator-driven; never called
	// from the poll path.
	PruneSeen(ctx context.Context, tenantKey, endpoint string, before time.Time) (int64, error)
}
