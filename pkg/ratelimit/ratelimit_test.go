package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExhaustsCapacity(t *testing.T) {
	// Zero refill: exactly Capacity calls succeed, the next one fails.
	store := NewMemoryStore(Policy{Capacity: 5, RefillPerSec: 0})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := store.Allow(ctx, "c_customer_001")
		require.NoError(t, err)
		assert.True(t, allowed, "call %d should be within capacity", i+1)
	}

	allowed, err := store.Allow(ctx, "c_customer_001")
	require.NoError(t, err)
	assert.False(t, allowed, "call past capacity must be rejected")
}

func TestMemoryStoreBucketsAreIndependent(t *testing.T) {
	store := NewMemoryStore(Policy{Capacity: 1, RefillPerSec: 0})
	ctx := context.Background()

	allowed, _ := store.Allow(ctx, "c_customer_001")
	assert.True(t, allowed)
	allowed, _ = store.Allow(ctx, "c_customer_001")
	assert.False(t, allowed)

	// A different customer still has a full bucket.
	allowed, _ = store.Allow(ctx, "c_customer_002")
	assert.True(t, allowed)
}

func TestMemoryStoreConcurrentConsumption(t *testing.T) {
	const capacity = 50
	store := NewMemoryStore(Policy{Capacity: capacity, RefillPerSec: 0})
	ctx := context.Background()

	var granted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < capacity*4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.Allow(ctx, "c_customer_001"); ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(capacity), granted.Load(),
		"concurrent callers must consume exactly the bucket capacity")
}

func TestGateRetryAfterHint(t *testing.T) {
	gate := NewGate(NewMemoryStore(Policy{Capacity: 1, RefillPerSec: 0}))
	ctx := context.Background()

	adm, err := gate.Check(ctx, "c_customer_001")
	require.NoError(t, err)
	assert.True(t, adm.Allowed)

	adm, err = gate.Check(ctx, "c_customer_001")
	require.NoError(t, err)
	assert.False(t, adm.Allowed)
	assert.Equal(t, time.Second, adm.RetryAfter)
}

type failingStore struct{}

func (failingStore) Allow(ctx context.Context, customerID string) (bool, error) {
	return false, assert.AnError
}

func TestGateFailsClosedOnStoreError(t *testing.T) {
	gate := NewGate(failingStore{})

	adm, err := gate.Check(context.Background(), "c_customer_001")
	require.Error(t, err)
	assert.False(t, adm.Allowed)
	assert.Equal(t, time.Second, adm.RetryAfter)
}
