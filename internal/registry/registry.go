// Package registry holds the configured source adapters and fans discovery
// queries out across them.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jobscout/jobscout/internal/adapter"
	"github.com/jobscout/jobscout/internal/model"
)

// Registry is the set of active source adapters, bound to their persisted
// source rows. Build it once at startup; it is read-only afterwards and safe
// for concurrent use.
type Registry struct {
	logger   *slog.Logger
	adapters []adapter.SourceAdapter
	byName   map[string]adapter.SourceAdapter
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger,
		byName: make(map[string]adapter.SourceAdapter),
	}
}

// Add registers an adapter. Names must be unique; they key the persisted
// source rows.
func (r *Registry) Add(a adapter.SourceAdapter) error {
	name := a.Name()
	if name == "" {
		return fmt.Errorf("adapter has no name")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("adapter %q already registered", name)
	}
	r.byName[name] = a
	r.adapters = append(r.adapters, a)
	return nil
}

// Bind ensures a job_sources row exists for every adapter and stamps the
// resulting IDs onto the adapters. Call once after Add and before Discover.
func (r *Registry) Bind(ctx context.Context, sources model.SourceStore) error {
	for _, a := range r.adapters {
		row, err := sources.EnsureSource(ctx, model.JobSource{
			Name:              a.Name(),
			DisplayName:       a.DisplayName(),
			Type:              a.Type(),
			SupportsAutoApply: a.SupportsAutoApply(),
			Active:            true,
		})
		if err != nil {
			return fmt.Errorf("binding adapter %s: %w", a.Name(), err)
		}
		a.SetSourceID(row.ID)
		r.logger.Debug("adapter bound", "source", a.Name(), "source_id", row.ID)
	}
	return nil
}

// All returns every registered adapter in registration order.
func (r *Registry) All() []adapter.SourceAdapter {
	out := make([]adapter.SourceAdapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Active returns the adapters with a resolved source identity, meaning Bind
// has stamped their source row ID. Before Bind it is empty.
func (r *Registry) Active() []adapter.SourceAdapter {
	var out []adapter.SourceAdapter
	for _, a := range r.adapters {
		if a.SourceID() != 0 {
			out = append(out, a)
		}
	}
	return out
}

// ByName looks one adapter up.
func (r *Registry) ByName(name string) (adapter.SourceAdapter, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// ByType returns the adapters of one source type.
func (r *Registry) ByType(t model.SourceType) []adapter.SourceAdapter {
	var out []adapter.SourceAdapter
	for _, a := range r.adapters {
		if a.Type() == t {
			out = append(out, a)
		}
	}
	return out
}

// Select resolves a campaign's source selection. An empty list means every
// registered adapter; unknown names are skipped with a warning rather than
// failing the run.
func (r *Registry) Select(names []string) []adapter.SourceAdapter {
	if len(names) == 0 {
		return r.All()
	}
	var out []adapter.SourceAdapter
	for _, name := range names {
		a, ok := r.byName[name]
		if !ok {
			r.logger.Warn("campaign references unknown source", "source", name)
			continue
		}
		out = append(out, a)
	}
	return out
}

// SupportsAutoApply reports whether the adapter bound to sourceID can submit
// applications. Unknown IDs are treated as not supporting it.
func (r *Registry) SupportsAutoApply(sourceID int64) bool {
	for _, a := range r.adapters {
		if a.SourceID() == sourceID {
			return a.SupportsAutoApply()
		}
	}
	return false
}

// SourcedJob is one discovered posting tagged with the adapter that found it.
type SourcedJob struct {
	SourceID   int64
	SourceName string
	Job        model.DiscoveredJob
}

// SourceReport is the per-source outcome of one fan-out.
type SourceReport struct {
	Source    string
	JobCount  int
	QueryTime time.Duration
	Errors    []string
}

// DiscoverOutput aggregates a fan-out across sources.
type DiscoverOutput struct {
	Jobs       []SourcedJob
	Reports    []SourceReport
	Sources    int // sources queried
	Successful int // sources that reported no errors
	Failed     int
	Total      time.Duration
}

// Discover queries the given adapters in parallel and merges their results.
// A source that fails only contributes an error to its report; it never
// blocks or fails the others. Jobs are ordered by adapter registration
// order, so output is deterministic for a fixed input.
func (r *Registry) Discover(ctx context.Context, adapters []adapter.SourceAdapter, criteria model.SearchCriteria) DiscoverOutput {
	started := time.Now()

	type slot struct {
		jobs   []SourcedJob
		report SourceReport
	}
	slots := make([]slot, len(adapters))

	var wg sync.WaitGroup
	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a adapter.SourceAdapter) {
			defer wg.Done()

			queryStart := time.Now()
			result := a.Discover(ctx, criteria)
			elapsed := time.Since(queryStart)

			jobs := make([]SourcedJob, 0, len(result.Jobs))
			for _, job := range result.Jobs {
				jobs = append(jobs, SourcedJob{
					SourceID:   a.SourceID(),
					SourceName: a.Name(),
					Job:        job,
				})
			}
			slots[i] = slot{
				jobs: jobs,
				report: SourceReport{
					Source:    a.Name(),
					JobCount:  len(result.Jobs),
					QueryTime: elapsed,
					Errors:    result.Errors,
				},
			}

			if len(result.Errors) > 0 {
				r.logger.Warn("source reported errors during discovery",
					"source", a.Name(), "errors", len(result.Errors))
			}
		}(i, a)
	}
	wg.Wait()

	out := DiscoverOutput{Sources: len(adapters)}
	for _, s := range slots {
		out.Jobs = append(out.Jobs, s.jobs...)
		out.Reports = append(out.Reports, s.report)
		if len(s.report.Errors) > 0 {
			out.Failed++
		} else {
			out.Successful++
		}
	}
	out.Total = time.Since(started)

	r.logger.Info("discovery fan-out complete",
		"sources", out.Sources, "failed", out.Failed,
		"jobs", len(out.Jobs), "took", out.Total)
	return out
}

// HealthCheckAll probes every registered adapter in parallel. A probe that
// panics is reported as unhealthy instead of taking the process down.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]adapter.HealthStatus {
	statuses := make(map[string]adapter.HealthStatus, len(r.adapters))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, a := range r.adapters {
		wg.Add(1)
		go func(a adapter.SourceAdapter) {
			defer wg.Done()
			hs := r.probe(ctx, a)
			mu.Lock()
			statuses[a.Name()] = hs
			mu.Unlock()
		}(a)
	}
	wg.Wait()
	return statuses
}

func (r *Registry) probe(ctx context.Context, a adapter.SourceAdapter) (hs adapter.HealthStatus) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("health check panicked", "source", a.Name(), "panic", rec)
			hs = adapter.HealthStatus{Healthy: false, Message: fmt.Sprintf("health check panicked: %v", rec)}
		}
	}()
	return a.HealthCheck(ctx)
}
