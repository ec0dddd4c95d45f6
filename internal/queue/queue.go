// Package queue executes work units asynchronously. Two backends exist: a
// Redis-brokered queue for durable multi-process operation and an in-process
// fallback used when no broker is configured. Both write every unit to the
// durable work-unit log before it is accepted, so queue state can always be
// reconstructed from the database.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jobscout/jobscout/internal/model"
)

// Handler processes one work unit. A nil return marks the unit completed;
// any error marks it failed. Handlers own their retries.
type Handler func(ctx context.Context, unit model.WorkUnit) error

// Registry maps work-unit types to their handlers. Registration happens once
// at startup, before the queue starts consuming.
type Registry struct {
	mu       sync.RWMutex
	handlers map[model.WorkUnitType]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[model.WorkUnitType]Handler)}
}

// Register binds a handler to a unit type. Unknown types and double
// registration are configuration bugs and are rejected.
func (r *Registry) Register(t model.WorkUnitType, h Handler) error {
	if !model.ValidUnitType(t) {
		return fmt.Errorf("unknown work unit type %q", t)
	}
	if h == nil {
		return fmt.Errorf("nil handler for work unit type %q", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for %q", t)
	}
	r.handlers[t] = h
	return nil
}

// Resolve returns the handler for t, or an error when none is registered.
func (r *Registry) Resolve(t model.WorkUnitType) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	if !ok {
		return nil, fmt.Errorf("no handler registered for %q", t)
	}
	return h, nil
}

// Stats is a point-in-time view of the queue, taken from the durable log so
// it is backend independent.
type Stats struct {
	Waiting   int
	Active    int
	Completed int
	Failed    int
}

// Options adjust how a single unit is enqueued.
type Options struct {
	HighPriority bool
	Delay        time.Duration
}

type Option func(*Options)

// WithHighPriority places the unit ahead of normal-priority work.
func WithHighPriority() Option {
	return func(o *Options) { o.HighPriority = true }
}

// WithDelay holds the unit back for d before it becomes runnable.
func WithDelay(d time.Duration) Option {
	return func(o *Options) { o.Delay = d }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Queue accepts work units for asynchronous execution.
type Queue interface {
	// Enqueue validates the unit, writes its durable log row, and hands it to
	// the backend. The unit is only accepted once both succeed.
	Enqueue(ctx context.Context, unit model.WorkUnit, opts ...Option) error

	// Start launches the consumer side. It returns once consumers are
	// running; cancel ctx or call Stop to shut down.
	Start(ctx context.Context) error

	// Stop drains in-flight work and shuts the consumers down.
	Stop()

	Stats(ctx context.Context) (Stats, error)
}

// validateUnit applies the checks shared by both backends.
func validateUnit(unit model.WorkUnit) error {
	if unit.ID == "" {
		return fmt.Errorf("work unit has no ID")
	}
	if !model.ValidUnitType(unit.Type) {
		return fmt.Errorf("unknown work unit type %q", unit.Type)
	}
	return nil
}

// logStats converts durable-log counts into queue stats.
func logStats(ctx context.Context, log model.WorkUnitLog) (Stats, error) {
	counts, err := log.CountUnitsByStatus(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting work units: %w", err)
	}
	return Stats{
		Waiting:   counts[model.UnitStatusQueued],
		Active:    counts[model.UnitStatusActive],
		Completed: counts[model.UnitStatusCompleted],
		Failed:    counts[model.UnitStatusFailed],
	}, nil
}
