// Package journal persists a durable audit trail of dispatched events.
//
// Delivery to the downstream sink is at-least-once with no delivery record
// of its own; the journal is the operator's answer to "what did we emit and
// when". Events flow through an in-memory buffer into batched Postgres
// inserts keyed by event id, so replayed cycles cannot double-write.
package journal
