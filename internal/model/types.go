package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/njbennett/changepoll/internal/auth"
)

// -----------------------------------------------------------------------------
// Persisted Types
// -----------------------------------------------------------------------------

// Subscription is one tenant's poll configuration. It is owned by the state
// store; the poll engine reads it and requests updates through state.Store.
type Subscription struct {
	TenantKey  string          // Primary key (e.g., "acme")
	Endpoints  []string        // Remote collections to poll (e.g., "people", "companies")
	LastPolled time.Time       // Last cycle start (UTC); zero means never polled
	Credential auth.Credential // Optional bearer token
	AuthMode   auth.Mode       // Whether a credential is mandatory
}

// EndpointMeta is the per-(subscription, endpoint) dedup record.
// Created lazily on the first poll of an endpoint.
type EndpointMeta struct {
	// LastPolled is the fetch-start time of the last successful fetch for
	// this endpoint. Nil means never polled (next fetch is a full fetch).
	LastPolled *time.Time

	// Seen maps previously observed entity identifiers to the time they
	// were first recorded. The value exists only to support windowed
	// pruning; membership alone drives dedup.
	Seen map[string]time.Time
}

// NewEndpointMeta returns an empty meta record.
func NewEndpointMeta() *EndpointMeta {
	return &EndpointMeta{Seen: make(map[string]time.Time)}
}

// HasSeen reports whether an identifier was recorded in an earlier cycle.
func (m *EndpointMeta) HasSeen(id string) bool {
	_, ok := m.Seen[id]
	return ok
}

// Record adds an identifier to the seen-set. Returns false if it was
// already present (first-seen time is never overwritten).
func (m *EndpointMeta) Record(id string, at time.Time) bool {
	if m.Seen == nil {
		m.Seen = make(map[string]time.Time)
	}
	if _, ok := m.Seen[id]; ok {
		return false
	}
	m.Seen[id] = at
	return true
}

// -----------------------------------------------------------------------------
// Cycle-Scoped Types
// -----------------------------------------------------------------------------

// RawEntity is one record returned by the remote API. Lives only for the
// duration of a single poll cycle.
type RawEntity struct {
	ID        string            // Entity identifier; empty if the record carried none
	CreatedAt *time.Time        // Creation timestamp; nil if absent
	Kind      string            // Singular entity kind (e.g., "person")
	Fields    map[string]string // Remaining payload, treated as opaque
}

// ChangeKind classifies an entity within a cycle.
type ChangeKind string

const (
	ChangeNew      ChangeKind = "new"
	ChangeModified ChangeKind = "modified"
)

// EventName identifies a classified event without string assembly in the
// core. Formatting happens only at the dispatch boundary.
type EventName struct {
	TenantKey  string
	EntityKind string
	Change     ChangeKind
}

// String renders the wire form "{tenantKey}:{kind}:{new|modified}".
// The entity kind is lowercased.
func (n EventName) String() string {
	return n.TenantKey + ":" + strings.ToLower(n.EntityKind) + ":" + string(n.Change)
}

// ClassifiedEvent is the unit handed to the dispatcher, one per RawEntity
// per cycle.
type ClassifiedEvent struct {
	ID         uuid.UUID // Dedup key for the journal (at-least-once delivery)
	Name       EventName
	Endpoint   string    // Endpoint the entity came from
	Entity     RawEntity // Opaque payload travels with the event
	OccurredAt time.Time // Classification time (UTC)
}
