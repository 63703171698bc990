package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy controls per-tool retry behavior. Attempt k waits
// BackoffStep*k before re-invoking the tool.
type RetryPolicy struct {
	MaxRetries  int
	BackoffStep time.Duration
}

// Backoff returns the linear delay before retry attempt k (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BackoffStep * time.Duration(attempt)
}

// executeWithRetry invokes fn up to MaxRetries+1 times, sleeping the linear
// backoff between attempts. A cancelled context aborts the wait and surfaces
// the context error.
func executeWithRetry[T any](ctx context.Context, policy RetryPolicy, log *slog.Logger, name string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(policy.Backoff(attempt)):
			}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		log.Warn("tool invocation failed",
			"tool", name,
			"attempt", attempt+1,
			"error", err)
	}

	return zero, fmt.Errorf("tool %s failed after %d attempts: %w", name, policy.MaxRetries+1, lastErr)
}
