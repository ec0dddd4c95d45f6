package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SourceLimiter enforces a minimum delay between requests to the same
// external source. All adapters share one instance; the source name is the
// bucket key.
type SourceLimiter struct {
	mu        sync.Mutex
	lastCall  map[string]time.Time // key: source name
	minDelay  time.Duration
	overrides map[string]time.Duration // per-source overrides
}

// NewSourceLimiter creates a limiter that enforces minDelay between
// consecutive requests to the same source. overrides may be nil.
func NewSourceLimiter(minDelay time.Duration, overrides map[string]time.Duration) *SourceLimiter {
	return &SourceLimiter{
		lastCall:  make(map[string]time.Time),
		minDelay:  minDelay,
		overrides: overrides,
	}
}

// DelayFor returns the configured delay for the given source, falling back
// to the shared minimum.
func (r *SourceLimiter) DelayFor(source string) time.Duration {
	if d, ok := r.overrides[source]; ok {
		return d
	}
	return r.minDelay
}

// Wait blocks until enough time has passed since the last request to the
// given source. Returns an error if the context is cancelled while waiting.
func (r *SourceLimiter) Wait(ctx context.Context, source string) error {
	r.mu.Lock()
	last, ok := r.lastCall[source]
	now := time.Now()

	if !ok {
		// First request for this source — no wait needed.
		r.lastCall[source] = now
		r.mu.Unlock()
		return nil
	}

	delay := r.DelayFor(source)
	elapsed := now.Sub(last)
	if elapsed >= delay {
		// Enough time has passed — proceed immediately.
		r.lastCall[source] = now
		r.mu.Unlock()
		return nil
	}

	// Need to wait for the remainder.
	remaining := delay - elapsed
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", source, ctx.Err())
	case <-time.After(remaining):
	}

	// Record the actual time after waiting.
	r.mu.Lock()
	r.lastCall[source] = time.Now()
	r.mu.Unlock()

	return nil
}
