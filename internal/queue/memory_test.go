package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jobscout/jobscout/internal/model"
)

// collector is a handler that records the units it was given.
type collector struct {
	mu    sync.Mutex
	seen  []string
	errBy map[string]error
	done  chan string
}

func newCollector() *collector {
	return &collector{errBy: make(map[string]error), done: make(chan string, 64)}
}

func (c *collector) handle(_ context.Context, unit model.WorkUnit) error {
	c.mu.Lock()
	c.seen = append(c.seen, unit.ID)
	err := c.errBy[unit.ID]
	c.mu.Unlock()
	c.done <- unit.ID
	return err
}

func (c *collector) waitFor(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-c.done:
		case <-deadline:
			t.Fatalf("timed out waiting for %d units, got %d", n, i)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.seen))
	copy(out, c.seen)
	return out
}

func newTestMemoryQueue(t *testing.T, c *collector) (*MemoryQueue, *fakeLog) {
	t.Helper()
	r := NewRegistry()
	if err := r.Register(model.UnitAnalyze, c.handle); err != nil {
		t.Fatal(err)
	}
	log := newFakeLog()
	q := NewMemoryQueue(r, log, discardLogger())
	return q, log
}

func unit(id string) model.WorkUnit {
	return model.WorkUnit{ID: id, Type: model.UnitAnalyze, Data: []byte(`{}`)}
}

// waitStatus polls the fake log until the unit reaches the wanted status;
// the log write happens just after the handler returns.
func waitStatus(t *testing.T, log *fakeLog, id string, want model.WorkUnitStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if log.status(id) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("unit %s status = %q, want %q", id, log.status(id), want)
}

func TestMemoryQueue_ProcessesInOrder(t *testing.T) {
	c := newCollector()
	q, log := newTestMemoryQueue(t, c)
	ctx := context.Background()

	// Enqueue before starting; nothing may be lost.
	for _, id := range []string{"u1", "u2", "u3"} {
		if err := q.Enqueue(ctx, unit(id)); err != nil {
			t.Fatalf("enqueuing %s: %v", id, err)
		}
	}
	if err := q.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer q.Stop()

	seen := c.waitFor(t, 3)
	for i, want := range []string{"u1", "u2", "u3"} {
		if seen[i] != want {
			t.Errorf("position %d = %s, want %s (FIFO)", i, seen[i], want)
		}
	}
	for _, id := range []string{"u1", "u2", "u3"} {
		waitStatus(t, log, id, model.UnitStatusCompleted)
	}
}

func TestMemoryQueue_HighPriorityFirst(t *testing.T) {
	c := newCollector()
	q, _ := newTestMemoryQueue(t, c)
	ctx := context.Background()

	if err := q.Enqueue(ctx, unit("normal")); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(ctx, unit("urgent"), WithHighPriority()); err != nil {
		t.Fatal(err)
	}
	if err := q.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer q.Stop()

	seen := c.waitFor(t, 2)
	if seen[0] != "urgent" {
		t.Errorf("order = %v, high priority must run first", seen)
	}
}

func TestMemoryQueue_FailureGoesToSink(t *testing.T) {
	c := newCollector()
	handlerErr := errors.New("scorer unavailable")
	c.errBy["bad"] = handlerErr

	q, log := newTestMemoryQueue(t, c)
	ctx := context.Background()

	if err := q.Enqueue(ctx, unit("bad")); err != nil {
		t.Fatal(err)
	}
	if err := q.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer q.Stop()

	select {
	case failure := <-q.Failures():
		if failure.Unit.ID != "bad" {
			t.Errorf("failure unit = %s", failure.Unit.ID)
		}
		if !errors.Is(failure.Err, handlerErr) {
			t.Errorf("failure err = %v", failure.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler failure never reached the sink")
	}

	waitStatus(t, log, "bad", model.UnitStatusFailed)
}

func TestMemoryQueue_RejectsUnregisteredType(t *testing.T) {
	c := newCollector()
	q, log := newTestMemoryQueue(t, c)

	err := q.Enqueue(context.Background(), model.WorkUnit{ID: "u1", Type: model.UnitSubmit})
	if err == nil {
		t.Fatal("enqueue must fail when no handler is registered")
	}
	if len(log.records) != 0 {
		t.Error("rejected unit must not reach the durable log")
	}
}

func TestMemoryQueue_LogFailureRejectsUnit(t *testing.T) {
	c := newCollector()
	q, log := newTestMemoryQueue(t, c)
	log.failErr = errors.New("disk full")

	if err := q.Enqueue(context.Background(), unit("u1")); err == nil {
		t.Fatal("enqueue must fail when the durable log write fails")
	}
}

func TestMemoryQueue_DelayedUnit(t *testing.T) {
	c := newCollector()
	q, _ := newTestMemoryQueue(t, c)
	ctx := context.Background()

	if err := q.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer q.Stop()

	if err := q.Enqueue(ctx, unit("later"), WithDelay(50*time.Millisecond)); err != nil {
		t.Fatal(err)
	}

	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("delayed unit never ran")
	}
}

func TestMemoryQueue_Stats(t *testing.T) {
	c := newCollector()
	q, _ := newTestMemoryQueue(t, c)
	ctx := context.Background()

	if err := q.Enqueue(ctx, unit("u1")); err != nil {
		t.Fatal(err)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Waiting != 1 {
		t.Errorf("waiting = %d, want 1", stats.Waiting)
	}

	if err := q.Start(ctx); err != nil {
		t.Fatal(err)
	}
	c.waitFor(t, 1)
	q.Stop()

	stats, err = q.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Completed != 1 || stats.Waiting != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
