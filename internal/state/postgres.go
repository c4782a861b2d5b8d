package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/njbennett/changepoll/internal/auth"
	"github.com/njbennett/changepoll/internal/model"
)

// PostgresStore is the production Store backed by a pgx connection pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore. The pool is owned by the caller.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema creates the state tables if they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	tenant_key  TEXT PRIMARY KEY,
	endpoints   TEXT[] NOT NULL,
	last_polled TIMESTAMPTZ,
	credential  TEXT NOT NULL DEFAULT '',
	auth_mode   TEXT NOT NULL DEFAULT 'required'
);

CREATE TABLE IF NOT EXISTS endpoint_meta (
	tenant_key  TEXT NOT NULL,
	endpoint    TEXT NOT NULL,
	last_polled TIMESTAMPTZ,
	PRIMARY KEY (tenant_key, endpoint)
);

CREATE TABLE IF NOT EXISTS seen_entities (
	tenant_key    TEXT NOT NULL,
	endpoint      TEXT NOT NULL,
	entity_id     TEXT NOT NULL,
	first_seen_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (tenant_key, endpoint, entity_id)
);

CREATE INDEX IF NOT EXISTS seen_entities_first_seen_idx
	ON seen_entities (tenant_key, endpoint, first_seen_at);
`

// EnsureSchema creates the state tables if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure state schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := s.db.Query(ctx, `
		SELECT tenant_key, endpoints, last_polled, credential, auth_mode
		FROM subscriptions
		ORDER BY tenant_key
	`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *PostgresStore) GetSubscription(ctx context.Context, tenantKey string) (*model.Subscription, error) {
	row := s.db.QueryRow(ctx, `
		SELECT tenant_key, endpoints, last_polled, credential, auth_mode
		FROM subscriptions
		WHERE tenant_key = $1
	`, tenantKey)

	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sub, err
}

func (s *PostgresStore) SetLastPolled(ctx context.Context, tenantKey string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE subscriptions SET last_polled = $2 WHERE tenant_key = $1
	`, tenantKey, at)
	if err != nil {
		return fmt.Errorf("set last polled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetEndpointMeta(ctx context.Context, tenantKey, endpoint string) (*model.EndpointMeta, error) {
	meta := model.NewEndpointMeta()

	var lastPolled *time.Time
	err := s.db.QueryRow(ctx, `
		SELECT last_polled FROM endpoint_meta
		WHERE tenant_key = $1 AND endpoint = $2
	`, tenantKey, endpoint).Scan(&lastPolled)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Never polled; fall through with an empty record.
	case err != nil:
		return nil, fmt.Errorf("get endpoint meta: %w", err)
	default:
		meta.LastPolled = lastPolled
	}

	rows, err := s.db.Query(ctx, `
		SELECT entity_id, first_seen_at FROM seen_entities
		WHERE tenant_key = $1 AND endpoint = $2
	`, tenantKey, endpoint)
	if err != nil {
		return nil, fmt.Errorf("load seen-set: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var firstSeen time.Time
		if err := rows.Scan(&id, &firstSeen); err != nil {
			return nil, fmt.Errorf("scan seen entity: %w", err)
		}
		meta.Seen[id] = firstSeen
	}
	return meta, rows.Err()
}

func (s *PostgresStore) SetEndpointLastPolled(ctx context.Context, tenantKey, endpoint string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO endpoint_meta (tenant_key, endpoint, last_polled)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_key, endpoint) DO UPDATE SET last_polled = EXCLUDED.last_polled
	`, tenantKey, endpoint, at)
	if err != nil {
		return fmt.Errorf("set endpoint last polled: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordSeen(ctx context.Context, tenantKey, endpoint, id string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO seen_entities (tenant_key, endpoint, entity_id, first_seen_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_key, endpoint, entity_id) DO NOTHING
	`, tenantKey, endpoint, id, at)
	if err != nil {
		return fmt.Errorf("record seen entity: %w", err)
	}
	return nil
}

func (s *PostgresStore) PruneSeen(ctx context.Context, tenantKey, endpoint string, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM seen_entities
		WHERE tenant_key = $1 AND endpoint = $2 AND first_seen_at < $3
	`, tenantKey, endpoint, before)
	if err != nil {
		return 0, fmt.Errorf("prune seen-set: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanSubscription reads one subscription row.
func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var (
		sub        model.Subscription
		lastPolled *time.Time
		credential string
		mode       string
	)
	if err := row.Scan(&sub.TenantKey, &sub.Endpoints, &lastPolled, &credential, &mode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	if lastPolled != nil {
		sub.LastPolled = *lastPolled
	}
	sub.Credential = auth.Credential(credential)

	authMode, err := auth.ParseMode(mode)
	if err != nil {
		return nil, fmt.Errorf("subscription %s: %w", sub.TenantKey, err)
	}
	sub.AuthMode = authMode
	return &sub, nil
}
