// Package state persists subscription poll metadata: last-polled timestamps
// and per-endpoint seen-sets. The poll engine has no cross-cycle memory of
// its own; everything it knows between invocations flows through this
// package's Store contract.
//
// Two implementations are provided: a Postgres store for production and an
// in-memory store for tests and local development.
package state
