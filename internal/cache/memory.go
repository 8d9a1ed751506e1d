package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a concurrency-safe in-memory Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: cache key, value: entry
	data map[string]Entry

	clock Clock

	// retention configuration
	maxEntries int // max number of entries kept (0 = unlimited)
}

// NewMemoryStore creates a new MemoryStore.
// If maxEntries is <= 0, it is treated as unlimited.
func NewMemoryStore(clock Clock, maxEntries int) *MemoryStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryStore{
		data:       make(map[string]Entry),
		clock:      clock,
		maxEntries: maxEntries,
	}
}

// Get returns the live entry for key, or ErrMiss.
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || !e.Live(s.clock.Now()) {
		return Entry{}, ErrMiss
	}
	return e, nil
}

// Put inserts or overwrites key and enforces retention.
func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	buf := make([]byte, len(value))
	copy(buf, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = Entry{
		Key:        key,
		Value:      buf,
		InsertedAt: s.clock.Now(),
		TTL:        ttl,
	}

	// Enforce retention by count, dropping expired entries first.
	if s.maxEntries > 0 && len(s.data) > s.maxEntries {
		s.pruneLocked()
		for len(s.data) > s.maxEntries {
			if !s.evictOldestLocked(key) {
				break
			}
		}
	}
	return nil
}

// Forget removes key if present.
func (s *MemoryStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Prune removes expired entries and returns how many were dropped.
func (s *MemoryStore) Prune(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pruneLocked(), nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}

func (s *MemoryStore) pruneLocked() int {
	now := s.clock.Now()
	n := 0
	for k, e := range s.data {
		if !e.Live(now) {
			delete(s.data, k)
			n++
		}
	}
	return n
}

// evictOldestLocked drops the entry with the earliest insertion time, never keep.
func (s *MemoryStore) evictOldestLocked(keep string) bool {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range s.data {
		if k == keep {
			continue
		}
		if !found || e.InsertedAt.Before(oldest) {
			oldestKey, oldest, found = k, e.InsertedAt, true
		}
	}
	if !found {
		return false
	}
	delete(s.data, oldestKey)
	return true
}

var _ Store = (*MemoryStore)(nil)
