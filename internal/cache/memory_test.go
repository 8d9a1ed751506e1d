package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExpiry(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(clock, 0)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte(`{"a":1}`), 30*time.Minute))

	e, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(e.Value))
	assert.Equal(t, clock.Now(), e.InsertedAt)
	assert.Equal(t, 30*time.Minute, e.TTL)

	clock.Advance(30*time.Minute - time.Second)
	_, err = s.Get(ctx, "k")
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStoreOverwriteResetsInsertion(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(clock, 0)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte(`1`), time.Minute))
	clock.Advance(50 * time.Second)
	require.NoError(t, s.Put(ctx, "k", []byte(`2`), time.Minute))
	clock.Advance(50 * time.Second)

	e, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "2", string(e.Value))
}

func TestMemoryStorePrune(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(clock, 0)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "short", []byte(`1`), time.Minute))
	require.NoError(t, s.Put(ctx, "long", []byte(`2`), time.Hour))
	clock.Advance(2 * time.Minute)

	n, err := s.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.Len())

	_, err = s.Get(ctx, "long")
	assert.NoError(t, err)
}

func TestMemoryStoreMaxEntriesEvictsOldest(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(clock, 2)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a", []byte(`1`), time.Hour))
	clock.Advance(time.Second)
	require.NoError(t, s.Put(ctx, "b", []byte(`2`), time.Hour))
	clock.Advance(time.Second)
	require.NoError(t, s.Put(ctx, "c", []byte(`3`), time.Hour))

	assert.Equal(t, 2, s.Len())
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = s.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryStoreForget(t *testing.T) {
	s := NewMemoryStore(newFakeClock(), 0)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte(`1`), time.Hour))
	require.NoError(t, s.Forget(ctx, "k"))

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStoreCopiesValue(t *testing.T) {
	s := NewMemoryStore(newFakeClock(), 0)
	ctx := context.Background()

	buf := []byte(`{"a":1}`)
	require.NoError(t, s.Put(ctx, "k", buf, time.Hour))
	buf[1] = 'X'

	e, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(e.Value))
}
