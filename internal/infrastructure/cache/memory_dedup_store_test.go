package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMemoryStore(t *testing.T) (*MemoryDedupStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryDedupStore(time.Hour)
	store.now = clock.Now
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestMemoryDedupStore_MarkProcessed(t *testing.T) {
	ctx := context.Background()

	t.Run("first delivery is new", func(t *testing.T) {
		store, _ := newTestMemoryStore(t)

		isNew, err := store.MarkProcessed(ctx, "stripe:event:evt_1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("redelivery is a duplicate", func(t *testing.T) {
		store, _ := newTestMemoryStore(t)

		_, err := store.MarkProcessed(ctx, "stripe:event:evt_2", time.Hour)
		require.NoError(t, err)

		isNew, err := store.MarkProcessed(ctx, "stripe:event:evt_2", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("expired key is accepted again", func(t *testing.T) {
		store, clock := newTestMemoryStore(t)

		_, err := store.MarkProcessed(ctx, "stripe:event:evt_3", time.Minute)
		require.NoError(t, err)

		clock.Advance(time.Minute)

		isNew, err := store.MarkProcessed(ctx, "stripe:event:evt_3", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestMemoryDedupStore_Forget(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMemoryStore(t)

	_, err := store.MarkProcessed(ctx, "stripe:event:evt_retry", time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Forget(ctx, "stripe:event:evt_retry"))

	isNew, err := store.MarkProcessed(ctx, "stripe:event:evt_retry", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew, "forgotten key must be handled again")

	assert.NoError(t, store.Forget(ctx, "never-seen"))
}

func TestMemoryDedupStore_Sweep(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestMemoryStore(t)

	_, _ = store.MarkProcessed(ctx, "short-1", time.Minute)
	_, _ = store.MarkProcessed(ctx, "short-2", time.Minute)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)
	assert.Equal(t, 3, store.Len())

	clock.Advance(2 * time.Minute)
	store.sweep()

	assert.Equal(t, 1, store.Len())
	isNew, err := store.MarkProcessed(ctx, "long", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew)
}

func TestMemoryDedupStore_ConcurrentDeliveries(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMemoryStore(t)

	const deliveries = 100
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		newCount int
	)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(ctx, "stripe:event:evt_race", time.Hour)
			if err == nil && isNew {
				mu.Lock()
				newCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, newCount, "exactly one delivery should win")
}

func TestMemoryDedupStore_Close(t *testing.T) {
	store := NewMemoryDedupStore(0)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
