package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jobscout/jobscout/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingCall invokes a function on each attempt, tracking call count.
type countingCall struct {
	calls int
	fn    func(attempt int) error
}

func (c *countingCall) run(_ context.Context) error {
	c.calls++
	return c.fn(c.calls)
}

func testPolicy() Policy {
	return Policy{MaxRetries: 2, BaseDelay: 10 * time.Millisecond, Logger: discardLogger()}
}

func TestDo_SucceedsOnFirstAttempt(t *testing.T) {
	call := &countingCall{fn: func(_ int) error { return nil }}

	if err := testPolicy().Do(context.Background(), "fetch", call.run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call.calls != 1 {
		t.Fatalf("expected 1 call, got %d", call.calls)
	}
}

func TestDo_RetriesOn5xx_SucceedsOnSecondAttempt(t *testing.T) {
	call := &countingCall{fn: func(attempt int) error {
		if attempt == 1 {
			return &model.HTTPError{StatusCode: 503, Err: errors.New("service unavailable")}
		}
		return nil
	}}

	if err := testPolicy().Do(context.Background(), "fetch", call.run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", call.calls)
	}
}

func TestDo_DoesNotRetryOn4xx(t *testing.T) {
	call := &countingCall{fn: func(_ int) error {
		return &model.HTTPError{StatusCode: 404, Err: errors.New("not found")}
	}}

	err := testPolicy().Do(context.Background(), "fetch", call.run)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 404 {
		t.Fatalf("expected HTTPError with status 404, got %v", err)
	}
	if call.calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", call.calls)
	}
}

func TestDo_RetriesOn429(t *testing.T) {
	call := &countingCall{fn: func(attempt int) error {
		if attempt == 1 {
			return &model.HTTPError{StatusCode: 429, RetryAfter: 10 * time.Millisecond}
		}
		return nil
	}}

	if err := testPolicy().Do(context.Background(), "fetch", call.run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", call.calls)
	}
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	call := &countingCall{fn: func(_ int) error {
		return &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	err := testPolicy().Do(context.Background(), "fetch", call.run)
	if err == nil {
		t.Fatal("expected error after max retries, got nil")
	}
	// 1 initial + 2 retries = 3
	if call.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", call.calls)
	}
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	call := &countingCall{fn: func(_ int) error {
		return &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	// Cancel immediately so the backoff sleep is interrupted.
	cancel()

	p := Policy{MaxRetries: 2, BaseDelay: time.Second, Logger: discardLogger()}
	err := p.Do(ctx, "fetch", call.run)
	if err == nil {
		t.Fatal("expected error from context cancellation, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// Initial call made, then cancelled during backoff.
	if call.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", call.calls)
	}
}
