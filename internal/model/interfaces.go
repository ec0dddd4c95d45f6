package model

import (
	"context"
	"time"
)

// OfferStore persists job offers, keyed by campaign.
type OfferStore interface {
	CreateOffer(ctx context.Context, offer *JobOffer) error
	GetOffer(ctx context.Context, id string) (*JobOffer, error)
	ListOffersByCampaign(ctx context.Context, campaignID string) ([]JobOffer, error)
	UpdateOfferStatus(ctx context.Context, id string, status OfferStatus) error
	SetMatchResult(ctx context.Context, id string, score float64, summary string, status OfferStatus) error
	// ExpireOpenOffers moves every offer of the campaign that is still in an
	// open status and was posted before cutoff to EXPIRED, setting ExpiresAt.
	// Returns the number of offers swept.
	ExpireOpenOffers(ctx context.Context, campaignID string, cutoff time.Time) (int, error)
}

// SourceStore maintains the job-source catalog.
type SourceStore interface {
	// EnsureSource creates the row for src.Name if absent and returns the
	// persisted row either way. Must be idempotent: two adapters racing on
	// first use both get the same row.
	EnsureSource(ctx context.Context, src JobSource) (*JobSource, error)
	ListSources(ctx context.Context) ([]JobSource, error)
}

// CampaignStore reads campaign configuration.
type CampaignStore interface {
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	ListCampaigns(ctx context.Context) ([]Campaign, error)
	ListEnabledCampaigns(ctx context.Context) ([]Campaign, error)
}

// ApplicationStore records applications created on auto-apply.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, app *Application) error
}

// Application is the record created when a matched offer is auto-applied.
type Application struct {
	ID         string
	OfferID    string
	CampaignID string
	CreatedAt  time.Time
}

// SourceResult is the per-source outcome recorded on a discovery run. A
// source that failed carries its error here; the run itself still completes.
type SourceResult struct {
	JobCount    int    `json:"jobCount"`
	QueryTimeMs int64  `json:"queryTimeMs"`
	Error       string `json:"error,omitempty"`
}

// DiscoveryRun is the summary row recorded for every discovery run,
// successful or not.
type DiscoveryRun struct {
	ID          string
	CampaignID  string
	Status      string // "completed" or "failed"
	Error       string
	Found       int
	New         int
	Duplicates  int
	Expired     int
	BySource    map[string]SourceResult // outcome per source name
	ByMatchType map[string]int          // duplicates per match type
	StartedAt   time.Time
	Duration    time.Duration
}

// RunStore records discovery-run summaries.
type RunStore interface {
	CreateRun(ctx context.Context, run *DiscoveryRun) error
	ListRunsByCampaign(ctx context.Context, campaignID string, limit int) ([]DiscoveryRun, error)
}

// WorkUnitLog is the durable log written for every work unit regardless of
// which queue backend executes it.
type WorkUnitLog interface {
	CreateUnit(ctx context.Context, rec *WorkUnitRecord) error
	MarkUnitActive(ctx context.Context, id string) error
	MarkUnitCompleted(ctx context.Context, id string) error
	MarkUnitFailed(ctx context.Context, id string, errMsg string) error
	CountUnitsByStatus(ctx context.Context) (map[WorkUnitStatus]int, error)
	CleanupUnits(ctx context.Context, olderThan time.Duration) (int, error)
}

// Notifier announces newly persisted offers.
type Notifier interface {
	Notify(offers []JobOffer) error
}

// Scorer produces a match score in [0,1] and a short summary for an offer
// against its campaign. Implementations may call an LLM; the pipeline only
// depends on this contract.
type Scorer interface {
	Score(ctx context.Context, campaign Campaign, offer JobOffer) (float64, string, error)
}
