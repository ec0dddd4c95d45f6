package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jobscout/jobscout/internal/model"
)

// Failure is one work unit the in-process queue gave up on, paired with the
// handler error. Consumers read these from Failures; they are the only
// record of a failure besides the durable log.
type Failure struct {
	Unit model.WorkUnit
	Err  error
}

const failureBuffer = 128

// MemoryQueue is the in-process fallback backend. Units live in memory only;
// a restart loses whatever was waiting, which the durable log makes visible
// as stuck rows. A single drain goroutine executes units strictly in
// priority-then-FIFO order.
type MemoryQueue struct {
	registry *Registry
	log      model.WorkUnitLog
	logger   *slog.Logger

	mu      sync.Mutex
	high    []model.WorkUnit
	normal  []model.WorkUnit
	wake    chan struct{}
	stopped bool

	failures chan Failure

	cancel context.CancelFunc
	done   chan struct{}
}

func NewMemoryQueue(registry *Registry, log model.WorkUnitLog, logger *slog.Logger) *MemoryQueue {
	return &MemoryQueue{
		registry: registry,
		log:      log,
		logger:   logger.With("queue", "memory"),
		wake:     make(chan struct{}, 1),
		failures: make(chan Failure, failureBuffer),
	}
}

// Failures exposes the failed-unit sink. Failed units are never silently
// dropped: if nobody drains this channel the oldest failure is evicted with
// a warning once the buffer fills.
func (q *MemoryQueue) Failures() <-chan Failure {
	return q.failures
}

func (q *MemoryQueue) Enqueue(ctx context.Context, unit model.WorkUnit, opts ...Option) error {
	if err := validateUnit(unit); err != nil {
		return err
	}
	if _, err := q.registry.Resolve(unit.Type); err != nil {
		return err
	}

	rec := &model.WorkUnitRecord{
		ID:       unit.ID,
		Type:     unit.Type,
		Data:     unit.Data,
		OwnerID:  unit.OwnerID,
		TestMode: unit.TestMode,
	}
	if err := q.log.CreateUnit(ctx, rec); err != nil {
		return fmt.Errorf("logging work unit: %w", err)
	}

	o := buildOptions(opts)
	if o.Delay > 0 {
		time.AfterFunc(o.Delay, func() { q.push(unit, o.HighPriority) })
		return nil
	}
	q.push(unit, o.HighPriority)
	return nil
}

func (q *MemoryQueue) push(unit model.WorkUnit, high bool) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	if high {
		q.high = append(q.high, unit)
	} else {
		q.normal = append(q.normal, unit)
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop returns the next runnable unit, high priority first.
func (q *MemoryQueue) pop() (model.WorkUnit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.high) > 0 {
		unit := q.high[0]
		q.high = q.high[1:]
		return unit, true
	}
	if len(q.normal) > 0 {
		unit := q.normal[0]
		q.normal = q.normal[1:]
		return unit, true
	}
	return model.WorkUnit{}, false
}

func (q *MemoryQueue) Start(ctx context.Context) error {
	ctx, q.cancel = context.WithCancel(ctx)
	q.done = make(chan struct{})
	go q.drain(ctx)
	q.logger.Info("in-process queue started")
	return nil
}

func (q *MemoryQueue) drain(ctx context.Context) {
	defer close(q.done)
	for {
		unit, ok := q.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}
		q.process(ctx, unit)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (q *MemoryQueue) process(ctx context.Context, unit model.WorkUnit) {
	handler, err := q.registry.Resolve(unit.Type)
	if err != nil {
		q.fail(ctx, unit, err)
		return
	}

	if err := q.log.MarkUnitActive(ctx, unit.ID); err != nil {
		q.logger.Warn("marking unit active", "unit_id", unit.ID, "error", err)
	}

	if err := handler(ctx, unit); err != nil {
		q.fail(ctx, unit, err)
		return
	}

	if err := q.log.MarkUnitCompleted(ctx, unit.ID); err != nil {
		q.logger.Warn("marking unit completed", "unit_id", unit.ID, "error", err)
	}
}

func (q *MemoryQueue) fail(ctx context.Context, unit model.WorkUnit, cause error) {
	q.logger.Error("work unit failed", "unit_id", unit.ID, "type", unit.Type, "error", cause)
	if err := q.log.MarkUnitFailed(ctx, unit.ID, cause.Error()); err != nil {
		q.logger.Warn("marking unit failed", "unit_id", unit.ID, "error", err)
	}

	failure := Failure{Unit: unit, Err: cause}
	for {
		select {
		case q.failures <- failure:
			return
		default:
		}
		select {
		case evicted := <-q.failures:
			q.logger.Warn("failure sink full, evicting oldest",
				"evicted_unit_id", evicted.Unit.ID)
		default:
		}
	}
}

func (q *MemoryQueue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
		<-q.done
	}
	q.logger.Info("in-process queue stopped")
}

func (q *MemoryQueue) Stats(ctx context.Context) (Stats, error) {
	return logStats(ctx, q.log)
}
