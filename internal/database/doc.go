// Package database provides the Postgres connection pool backing the
// subscription state store and the event journal.
package database
