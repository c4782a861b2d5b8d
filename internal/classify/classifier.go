// Package classify decides whether a fetched entity is new or modified and
// maintains the endpoint's persisted seen-set.
package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/njbennett/changepoll/internal/model"
)

// SeenRecorder is the slice of the state store the classifier needs: durable,
// incremental appends to an endpoint's seen-set.
type SeenRecorder interface {
	RecordSeen(ctx context.Context, tenantKey, endpoint, id string, at time.Time) error
}

// Classifier classifies entities for one process. Stateless between calls;
// all dedup state lives in the endpoint meta and the store.
type Classifier struct {
	store SeenRecorder
	now   func() time.Time
}

// New creates a Classifier that persists seen-set appends through store.
func New(store SeenRecorder) *Classifier {
	return &Classifier{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Classify decides new-vs-modified for one entity and records its identifier
// in the seen-set if it was not already known.
//
// The decision rules, in order:
//  1. Default to modified.
//  2. A creation timestamp strictly after the endpoint's previous last-poll
//     time upgrades to new. The timestamp signal is independent of
//     identifier history and wins even for an identifier already in the
//     seen-set; in practice a later cycle's last-poll time has moved past
//     the creation time, so re-sighted entities come out modified.
//  3. An unknown identifier is appended to the seen-set and persisted
//     immediately. Entities without an identifier are classified and
//     dispatched but never recorded, so they cannot be deduplicated later.
//
// The classification itself never fails; a persistence failure is returned
// alongside the decision so the caller can log it without losing the event.
func (c *Classifier) Classify(ctx context.Context, tenantKey, endpoint string, entity model.RawEntity, meta *model.EndpointMeta) (model.ChangeKind, error) {
	change := model.ChangeModified
	if entity.CreatedAt != nil && meta.LastPolled != nil && entity.CreatedAt.After(*meta.LastPolled) {
		change = model.ChangeNew
	}

	if entity.ID == "" {
		return change, nil
	}

	now := c.now()
	if !meta.Record(entity.ID, now) {
		return change, nil
	}
	if err := c.store.RecordSeen(ctx, tenantKey, endpoint, entity.ID, now); err != nil {
		return change, fmt.Errorf("persist seen id %q: %w", entity.ID, err)
	}
	return change, nil
}
