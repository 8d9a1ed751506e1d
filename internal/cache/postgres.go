package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
    key         TEXT PRIMARY KEY,
    value       JSON NOT NULL,
    inserted_at TIMESTAMPTZ NOT NULL,
    ttl_seconds BIGINT NOT NULL
)`

// PostgresStore keeps cache entries in a PostgreSQL table.
type PostgresStore struct {
	pool  *pgxpool.Pool
	clock Clock
}

// NewPostgresStore wraps an existing pool. Call EnsureSchema before use.
func NewPostgresStore(pool *pgxpool.Pool, clock Clock) *PostgresStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &PostgresStore{pool: pool, clock: clock}
}

// EnsureSchema creates the cache table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createCacheTable); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}

// Get returns the live entry for key, or ErrMiss.
func (s *PostgresStore) Get(ctx context.Context, key string) (Entry, error) {
	var (
		e          = Entry{Key: key}
		ttlSeconds int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT value, inserted_at, ttl_seconds FROM cache_entries WHERE key = $1`,
		key,
	).Scan(&e.Value, &e.InsertedAt, &ttlSeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("select cache entry: %w", err)
	}

	e.TTL = time.Duration(ttlSeconds) * time.Second
	if !e.Live(s.clock.Now()) {
		return Entry{}, ErrMiss
	}
	return e, nil
}

// Put upserts key with the current time as insertion time.
func (s *PostgresStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO cache_entries (key, value, inserted_at, ttl_seconds)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value,
    inserted_at = EXCLUDED.inserted_at,
    ttl_seconds = EXCLUDED.ttl_seconds`,
		key, value, s.clock.Now().UTC(), int64(ttl/time.Second))
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Forget deletes key.
func (s *PostgresStore) Forget(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Prune deletes expired rows.
func (s *PostgresStore) Prune(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM cache_entries WHERE inserted_at + ttl_seconds * INTERVAL '1 second' <= $1`,
		s.clock.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("prune cache entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

var _ Store = (*PostgresStore)(nil)
