package cache

import (
	"context"
	"sync"
	"time"

	"github.com/garmentflow/backend/internal/domain/shared"
)

const defaultSweepInterval = 5 * time.Minute

// MemoryDedupStore keeps handled keys (provider webhook event ids) in process memory.
// State is not shared between replicas, so it only suits single-instance deployments and tests.
type MemoryDedupStore struct {
	mu        sync.Mutex
	expiry    map[string]time.Time
	now       func() time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryDedupStore creates a store that sweeps expired keys every sweepInterval.
// A non-positive interval uses five minutes.
func NewMemoryDedupStore(sweepInterval time.Duration) *MemoryDedupStore {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	s := &MemoryDedupStore{
		expiry: make(map[string]time.Time),
		now:    time.Now,
		stop:   make(chan struct{}),
	}

	s.wg.Add(1)
	go s.sweepLoop(sweepInterval)

	return s
}

// MarkProcessed records key until ttl elapses. It returns false while the key is still live.
func (s *MemoryDedupStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expiry[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiry[key] = now.Add(ttl)
	return true, nil
}

// Forget drops key so the next delivery is handled again
func (s *MemoryDedupStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.expiry, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of tracked keys, expired ones included until the next sweep
func (s *MemoryDedupStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiry)
}

// Close stops the sweeper. Safe to call multiple times.
func (s *MemoryDedupStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

func (s *MemoryDedupStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryDedupStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, exp := range s.expiry {
		if !now.Before(exp) {
			delete(s.expiry, key)
		}
	}
}

var _ shared.IdempotencyStore = (*MemoryDedupStore)(nil)
