// Package adapter implements the source adapters that translate external job
// boards, feeds, and search APIs into the unified DiscoveredJob model.
package adapter

import (
	"context"
	"time"

	"github.com/jobscout/jobscout/internal/model"
)

// DiscoveryResult is what one adapter returns for one discovery call.
// Ordinary upstream failures (non-2xx, timeouts after retries) are captured
// in Errors alongside whatever partial results were obtained; Discover never
// returns a hard error for them.
type DiscoveryResult struct {
	Jobs   []model.DiscoveredJob
	Errors []string
}

// HealthStatus is the result of a liveness probe against one source.
type HealthStatus struct {
	Healthy      bool
	Message      string
	ResponseTime time.Duration
	LastChecked  time.Time
}

// SourceAdapter is implemented once per external source. Name is the stable
// slug joining the adapter to its persisted JobSource row; the registry
// resolves and sets the source ID once at startup.
type SourceAdapter interface {
	Name() string
	DisplayName() string
	Type() model.SourceType
	SupportsAutoApply() bool

	SourceID() int64
	SetSourceID(id int64)

	// Discover queries the source and maps matching postings into the
	// unified model, applying source-specific role/location/salary filtering.
	Discover(ctx context.Context, criteria model.SearchCriteria) DiscoveryResult

	// HealthCheck is a cheap liveness probe. It must not mutate state.
	HealthCheck(ctx context.Context) HealthStatus
}

// base carries the static identity shared by every adapter implementation.
type base struct {
	name        string
	displayName string
	sourceType  model.SourceType
	autoApply   bool
	sourceID    int64
}

func (b *base) Name() string            { return b.name }
func (b *base) DisplayName() string     { return b.displayName }
func (b *base) Type() model.SourceType  { return b.sourceType }
func (b *base) SupportsAutoApply() bool { return b.autoApply }
func (b *base) SourceID() int64         { return b.sourceID }
func (b *base) SetSourceID(id int64)    { b.sourceID = id }

// healthy and unhealthy build HealthStatus values with the probe duration.
func healthy(msg string, elapsed time.Duration) HealthStatus {
	return HealthStatus{Healthy: true, Message: msg, ResponseTime: elapsed, LastChecked: time.Now()}
}

func unhealthy(msg string, elapsed time.Duration) HealthStatus {
	return HealthStatus{Healthy: false, Message: msg, ResponseTime: elapsed, LastChecked: time.Now()}
}
