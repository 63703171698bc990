// Package ratelimit implements the admission gate: a per-customer token
// bucket consulted before any decision processing starts. Buckets live
// behind a Store so single-instance deployments use in-process limiters
// and multi-instance deployments share state through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Policy holds the bucket parameters applied to every customer.
type Policy struct {
	Capacity     int     // max tokens in the bucket
	RefillPerSec float64 // tokens added per second
}

// DefaultPolicy mirrors the service defaults: bursts of 10, refilling at 5/s.
func DefaultPolicy() Policy {
	return Policy{Capacity: 10, RefillPerSec: 5}
}

// Store abstracts the bucket state. Allow consumes one token for the
// customer and reports whether the request may proceed. It never blocks.
type Store interface {
	Allow(ctx context.Context, customerID string) (bool, error)
}

// Admission is the gate's verdict. RetryAfter is only meaningful when
// Allowed is false.
type Admission struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Gate wraps a Store and attaches the fixed retry-after hint.
type Gate struct {
	store      Store
	retryAfter time.Duration
}

// NewGate builds a gate over the given store.
func NewGate(store Store) *Gate {
	return &Gate{store: store, retryAfter: time.Second}
}

// Check consumes one token for the customer. Store errors deny admission:
// the gate fails closed rather than letting unmetered traffic through.
func (g *Gate) Check(ctx context.Context, customerID string) (Admission, error) {
	allowed, err := g.store.Allow(ctx, customerID)
	if err != nil {
		return Admission{Allowed: false, RetryAfter: g.retryAfter}, fmt.Errorf("admission check failed: %w", err)
	}
	if !allowed {
		return Admission{Allowed: false, RetryAfter: g.retryAfter}, nil
	}
	return Admission{Allowed: true}, nil
}
