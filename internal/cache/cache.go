package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"
)

var (
	// ErrMiss is returned by a Store when a key is absent or its entry has expired.
	ErrMiss = errors.New("cache miss")
)

// Clock supplies the current time to stores so expiry can be tested.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Entry is a single cached payload.
type Entry struct {
	Key        string
	Value      []byte // JSON encoded
	InsertedAt time.Time
	TTL        time.Duration
}

// ExpiresAt returns the first instant at which the entry is no longer valid.
func (e Entry) ExpiresAt() time.Time {
	return e.InsertedAt.Add(e.TTL)
}

// Live reports whether the entry is still valid at now.
func (e Entry) Live(now time.Time) bool {
	return now.Before(e.ExpiresAt())
}

// Store is a key/value store with per-entry TTL.
// Get must return ErrMiss for both absent and expired keys.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Forget(ctx context.Context, key string) error
	Prune(ctx context.Context) (int, error)
}

// Producer computes a value on a cache miss. A non-nil error means nothing is stored.
type Producer[T any] func(ctx context.Context) (T, error)

// Cache wraps a Store and keeps hit/miss counters.
type Cache struct {
	store  Store
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Cache on top of store.
func New(store Store) *Cache {
	return &Cache{store: store}
}

// Store returns the underlying store.
func (c *Cache) Store() Store {
	return c.store
}

// Stats returns hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Remember returns the live value cached under key, or calls produce exactly once,
// stores its result for ttl and returns it. Producer failures are returned as-is
// and never cached.
//
// Concurrent callers on a cold key are not coordinated; each may call produce.
func Remember[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, produce Producer[T]) (T, error) {
	var zero T

	entry, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		uerr := json.Unmarshal(entry.Value, &v)
		if uerr == nil {
			c.hits.Add(1)
			return v, nil
		}
		log.Printf("ERROR: cache entry %q is not decodable, refetching: %v", key, uerr)
	case !errors.Is(err, ErrMiss):
		log.Printf("ERROR: cache read for %q failed, refetching: %v", key, err)
	}

	c.misses.Add(1)

	v, err := produce(ctx)
	if err != nil {
		return zero, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("encode cache value for %q: %w", key, err)
	}
	if err := c.store.Put(ctx, key, raw, ttl); err != nil {
		log.Printf("ERROR: cache write for %q failed: %v", key, err)
	}

	return v, nil
}
