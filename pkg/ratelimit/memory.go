package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// MemoryStore keeps one rate.Limiter per customer, created lazily on first
// use. Idle buckets are never removed; the customer set is bounded by real
// usage so the map stays small in practice.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	policy  Policy
}

// NewMemoryStore creates an in-process bucket store.
func NewMemoryStore(policy Policy) *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*rate.Limiter),
		policy:  policy,
	}
}

func (s *MemoryStore) Allow(ctx context.Context, customerID string) (bool, error) {
	s.mu.Lock()
	lim, ok := s.buckets[customerID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(s.policy.RefillPerSec), s.policy.Capacity)
		s.buckets[customerID] = lim
	}
	s.mu.Unlock()

	return lim.Allow(), nil
}
