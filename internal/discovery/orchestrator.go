// Package discovery runs the end-to-end discovery pass for a campaign:
// fan-out across sources, deduplication, persistence, analysis enqueueing,
// and the expiry sweep, summarized in a recorded run.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jobscout/jobscout/internal/dedup"
	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/queue"
	"github.com/jobscout/jobscout/internal/registry"
)

// Stores bundles the persistence surfaces the orchestrator writes to.
type Stores struct {
	Offers  model.OfferStore
	Runs    model.RunStore
	Sources model.SourceStore
}

// Orchestrator executes discovery runs. Safe for concurrent use as long as
// two runs never target the same campaign at once; the scheduler serializes
// per campaign.
type Orchestrator struct {
	registry *registry.Registry
	stores   Stores
	queue    queue.Queue
	engine   *dedup.Engine
	notifier model.Notifier
	logger   *slog.Logger
	maxAge   time.Duration
}

func New(reg *registry.Registry, stores Stores, q queue.Queue, notifier model.Notifier, maxAge time.Duration, logger *slog.Logger) *Orchestrator {
	if maxAge <= 0 {
		maxAge = dedup.DefaultMaxAge
	}
	return &Orchestrator{
		registry: reg,
		stores:   stores,
		queue:    q,
		engine:   dedup.NewEngine(logger),
		notifier: notifier,
		logger:   logger,
		maxAge:   maxAge,
	}
}

// Run executes one discovery pass for the campaign. Every pass records a
// DiscoveryRun row, completed or failed. The returned run mirrors that row.
func (o *Orchestrator) Run(ctx context.Context, campaign model.Campaign) (*model.DiscoveryRun, error) {
	run := &model.DiscoveryRun{
		ID:          uuid.NewString(),
		CampaignID:  campaign.ID,
		Status:      "completed",
		BySource:    make(map[string]model.SourceResult),
		ByMatchType: make(map[string]int),
		StartedAt:   time.Now().UTC(),
	}
	logger := o.logger.With("campaign", campaign.ID, "run", run.ID)

	adapters := o.registry.Select(campaign.SourceNames)
	if len(adapters) == 0 {
		// A campaign with no usable sources completes with zero results.
		logger.Warn("no sources selected for campaign")
		return o.finish(ctx, logger, run, nil)
	}

	criteria := model.CriteriaFor(campaign)
	output := o.registry.Discover(ctx, adapters, criteria)
	run.Found = len(output.Jobs)
	for _, report := range output.Reports {
		run.BySource[report.Source] = model.SourceResult{
			JobCount:    report.JobCount,
			QueryTimeMs: report.QueryTime.Milliseconds(),
			Error:       strings.Join(report.Errors, "; "),
		}
	}

	existing, err := o.stores.Offers.ListOffersByCampaign(ctx, campaign.ID)
	if err != nil {
		return o.fail(ctx, logger, run, fmt.Errorf("loading existing offers: %w", err))
	}

	batch, stale := o.toBatch(campaign, output.Jobs)
	run.Expired = stale
	result := o.engine.Deduplicate(dedup.NewIndex(existing), batch)
	run.Duplicates = len(result.Duplicates)
	for matchType, n := range result.Stats.ByMatchType {
		run.ByMatchType[string(matchType)] = n
	}

	offers, err := o.persist(ctx, campaign, result.Unique)
	if err != nil {
		return o.fail(ctx, logger, run, err)
	}
	run.New = len(offers)

	if err := o.enqueueAnalysis(ctx, campaign, offers); err != nil {
		return o.fail(ctx, logger, run, err)
	}

	swept, err := o.stores.Offers.ExpireOpenOffers(ctx, campaign.ID, time.Now().UTC().Add(-o.maxAge))
	if err != nil {
		return o.fail(ctx, logger, run, fmt.Errorf("expiry sweep: %w", err))
	}
	run.Expired += swept

	o.notify(logger, offers)
	return o.finish(ctx, logger, run, nil)
}

// Handler adapts the orchestrator to the work queue so a discovery pass can
// be requested as a "discover" unit; the unit's owner names the campaign.
func (o *Orchestrator) Handler(campaigns model.CampaignStore) queue.Handler {
	return func(ctx context.Context, unit model.WorkUnit) error {
		campaign, err := campaigns.GetCampaign(ctx, unit.OwnerID)
		if err != nil {
			return fmt.Errorf("loading campaign for discover unit: %w", err)
		}
		_, err = o.Run(ctx, *campaign)
		return err
	}
}

// toBatch filters fan-out results by contract type and posting age and
// converts them into dedup candidates. Contract filtering happens here
// rather than in the adapters: most sources cannot express it in their
// query. Returns the batch and the number of stale postings dropped.
func (o *Orchestrator) toBatch(campaign model.Campaign, jobs []registry.SourcedJob) ([]dedup.Candidate, int) {
	now := time.Now().UTC()
	stale := 0
	batch := make([]dedup.Candidate, 0, len(jobs))
	for _, sj := range jobs {
		if !contractAllowed(campaign.ContractTypes, sj.Job.ContractType) {
			continue
		}
		if dedup.IsStale(sj.Job.PostedAt, o.maxAge, now) {
			stale++
			continue
		}
		batch = append(batch, dedup.Candidate{
			SourceID:   sj.SourceID,
			SourceName: sj.SourceName,
			Job:        sj.Job,
		})
	}
	return batch, stale
}

// contractAllowed keeps jobs with an unstated contract type: rejecting them
// outright would drop most feed postings.
func contractAllowed(wanted []model.ContractType, got model.ContractType) bool {
	if len(wanted) == 0 || got == "" {
		return true
	}
	for _, w := range wanted {
		if w == got {
			return true
		}
	}
	return false
}

func (o *Orchestrator) persist(ctx context.Context, campaign model.Campaign, unique []dedup.Candidate) ([]model.JobOffer, error) {
	offers := make([]model.JobOffer, 0, len(unique))
	for _, c := range unique {
		offer := model.JobOffer{
			ID:            uuid.NewString(),
			CampaignID:    campaign.ID,
			SourceID:      c.SourceID,
			Status:        model.StatusDiscovered,
			DiscoveredAt:  time.Now().UTC(),
			ExpiresAt:     dedup.ExpiryFor(c.Job.PostedAt, o.maxAge),
			DiscoveredJob: c.Job,
		}
		if err := o.stores.Offers.CreateOffer(ctx, &offer); err != nil {
			return nil, fmt.Errorf("persisting offer from %s: %w", c.SourceName, err)
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

func (o *Orchestrator) enqueueAnalysis(ctx context.Context, campaign model.Campaign, offers []model.JobOffer) error {
	for _, offer := range offers {
		data, err := json.Marshal(model.AnalyzeData{OfferID: offer.ID, CampaignID: campaign.ID})
		if err != nil {
			return fmt.Errorf("encoding analyze payload: %w", err)
		}
		unit := model.WorkUnit{
			ID:      uuid.NewString(),
			Type:    model.UnitAnalyze,
			Data:    data,
			OwnerID: campaign.ID,
		}
		if err := o.queue.Enqueue(ctx, unit); err != nil {
			return fmt.Errorf("enqueueing analysis for offer %s: %w", offer.ID, err)
		}
	}
	return nil
}

func (o *Orchestrator) notify(logger *slog.Logger, offers []model.JobOffer) {
	if o.notifier == nil || len(offers) == 0 {
		return
	}
	if err := o.notifier.Notify(offers); err != nil {
		logger.Warn("notifying about new offers", "error", err)
	}
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, run *model.DiscoveryRun, cause error) (*model.DiscoveryRun, error) {
	run.Status = "failed"
	run.Error = cause.Error()
	logger.Error("discovery run failed", "error", cause)
	return o.finish(ctx, logger, run, cause)
}

func (o *Orchestrator) finish(ctx context.Context, logger *slog.Logger, run *model.DiscoveryRun, cause error) (*model.DiscoveryRun, error) {
	run.Duration = time.Since(run.StartedAt)
	if err := o.stores.Runs.CreateRun(ctx, run); err != nil {
		logger.Error("recording discovery run", "error", err)
		if cause == nil {
			return run, fmt.Errorf("recording discovery run: %w", err)
		}
	}
	if cause == nil {
		logger.Info("discovery run complete",
			"found", run.Found, "new", run.New,
			"duplicates", run.Duplicates, "expired", run.Expired,
			"took", run.Duration)
	}
	return run, cause
}
