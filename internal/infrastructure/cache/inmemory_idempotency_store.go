package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// sweepInterval is how often expired request keys are removed.
const sweepInterval = 5 * time.Minute

// InMemoryIdempotencyStore remembers processed request keys in process
// memory. It serves a single-instance deployment; the keys are lost on
// restart, after which a retried invoice creation is processed again.
type InMemoryIdempotencyStore struct {
	mu       sync.RWMutex
	deadline map[string]time.Time

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts its sweeper.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		deadline: make(map[string]time.Time),
		stop:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.sweepLoop()

	return s
}

// MarkProcessed records a request key for the given TTL. It returns false
// when the key is already live, which tells the caller the request is a
// duplicate.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, requestKey string, ttl time.Duration) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if expires, ok := s.deadline[requestKey]; ok && now.Before(expires) {
		return false, nil
	}
	s.deadline[requestKey] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether a request key is live. Expired keys count
// as unseen.
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, requestKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expires, ok := s.deadline[requestKey]
	return ok && time.Now().Before(expires), nil
}

// Size returns the number of stored keys, expired ones included until the
// next sweep.
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deadline)
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *InMemoryIdempotencyStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, expires := range s.deadline {
		if now.After(expires) {
			delete(s.deadline, key)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
