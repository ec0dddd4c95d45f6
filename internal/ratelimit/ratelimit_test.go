package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWait_FirstRequestImmediate(t *testing.T) {
	l := NewSourceLimiter(1*time.Second, nil)

	start := time.Now()
	if err := l.Wait(context.Background(), "feed"); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first request waited %v, expected immediate", elapsed)
	}
}

func TestWait_EnforcesDelayPerSource(t *testing.T) {
	l := NewSourceLimiter(150*time.Millisecond, nil)
	ctx := context.Background()

	if err := l.Wait(ctx, "feed"); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	// Second request to the same source must wait.
	start := time.Now()
	if err := l.Wait(ctx, "feed"); err != nil {
		t.Fatalf("second Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("second request waited only %v, expected ~150ms", elapsed)
	}

	// A different source is not throttled by the first one.
	start = time.Now()
	if err := l.Wait(ctx, "aggregator"); err != nil {
		t.Fatalf("other source Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("other source waited %v, expected immediate", elapsed)
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	l := NewSourceLimiter(5*time.Second, nil)

	if err := l.Wait(context.Background(), "feed"); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, "feed")
	if err == nil {
		t.Fatal("expected context error, got nil")
	}
}

func TestDelayFor_Overrides(t *testing.T) {
	l := NewSourceLimiter(10*time.Second, map[string]time.Duration{
		"mock": 10 * time.Millisecond,
	})

	if got := l.DelayFor("mock"); got != 10*time.Millisecond {
		t.Errorf("DelayFor(mock) = %v, want 10ms", got)
	}
	if got := l.DelayFor("feed"); got != 10*time.Second {
		t.Errorf("DelayFor(feed) = %v, want 10s", got)
	}
}
