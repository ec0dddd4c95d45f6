// Package scheduler owns the periodic discovery loop: a cron entry runs
// discovery for every enabled campaign on the configured interval, and a
// daily entry expires aged-out offers and sweeps the work-unit log.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jobscout/jobscout/internal/model"
)

// DefaultUnitRetention is how long finished work-unit rows are kept before
// the daily cleanup removes them.
const DefaultUnitRetention = 7 * 24 * time.Hour

// CampaignRunner runs one discovery cycle for a single campaign.
// *discovery.Orchestrator satisfies it.
type CampaignRunner interface {
	Run(ctx context.Context, campaign model.Campaign) (*model.DiscoveryRun, error)
}

// Scheduler wraps robfig/cron and manages the discovery cycle.
type Scheduler struct {
	cron          *cron.Cron
	orchestrator  CampaignRunner
	campaigns     model.CampaignStore
	offers        model.OfferStore
	units         model.WorkUnitLog
	interval      time.Duration
	maxOfferAge   time.Duration
	unitRetention time.Duration
	logger        *slog.Logger
}

// New creates a scheduler that runs discovery at the given interval. Offers
// older than maxOfferAge are expired by the daily sweep.
func New(orch CampaignRunner, campaigns model.CampaignStore, offers model.OfferStore, units model.WorkUnitLog, interval, maxOfferAge time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		orchestrator:  orch,
		campaigns:     campaigns,
		offers:        offers,
		units:         units,
		interval:      interval,
		maxOfferAge:   maxOfferAge,
		unitRetention: DefaultUnitRetention,
		logger:        logger,
	}
}

// Start registers the cron entries and starts the scheduler. One discovery
// cycle runs immediately so a fresh install does not wait for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() {
		s.runCycle(ctx)
	}); err != nil {
		return fmt.Errorf("register discovery entry: %w", err)
	}

	if _, err := s.cron.AddFunc("@daily", func() {
		s.sweepOffers(ctx)
		s.cleanupUnits(ctx)
	}); err != nil {
		return fmt.Errorf("register cleanup entry: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "interval", s.interval.String())

	go s.runCycle(ctx)

	return nil
}

// Stop halts the cron loop and waits for any in-flight entry to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// runCycle runs discovery for every enabled campaign sequentially. Per-campaign
// failures are logged and do not stop the cycle.
func (s *Scheduler) runCycle(ctx context.Context) {
	campaigns, err := s.campaigns.ListEnabledCampaigns(ctx)
	if err != nil {
		s.logger.Error("list campaigns failed", "error", err)
		return
	}
	if len(campaigns) == 0 {
		s.logger.Info("no enabled campaigns, skipping cycle")
		return
	}

	s.logger.Info("discovery cycle started", "campaigns", len(campaigns))
	for _, c := range campaigns {
		if ctx.Err() != nil {
			return
		}
		run, err := s.orchestrator.Run(ctx, c)
		if err != nil {
			s.logger.Error("discovery failed", "campaign", c.ID, "error", err)
			continue
		}
		s.logger.Info("discovery ok",
			"campaign", c.ID,
			"found", run.Found,
			"new", run.New,
			"duplicates", run.Duplicates,
		)
	}
	s.logger.Info("discovery cycle complete")
}

// sweepOffers expires open offers older than maxOfferAge across every
// campaign, enabled or not. Discovery runs already sweep per campaign; this
// catches campaigns that were disabled after their offers aged out.
func (s *Scheduler) sweepOffers(ctx context.Context) {
	campaigns, err := s.campaigns.ListCampaigns(ctx)
	if err != nil {
		s.logger.Error("list campaigns for sweep failed", "error", err)
		return
	}
	cutoff := time.Now().UTC().Add(-s.maxOfferAge)
	for _, c := range campaigns {
		n, err := s.offers.ExpireOpenOffers(ctx, c.ID, cutoff)
		if err != nil {
			s.logger.Error("offer sweep failed", "campaign", c.ID, "error", err)
			continue
		}
		if n > 0 {
			s.logger.Info("offer sweep", "campaign", c.ID, "expired", n)
		}
	}
}

func (s *Scheduler) cleanupUnits(ctx context.Context) {
	n, err := s.units.CleanupUnits(ctx, s.unitRetention)
	if err != nil {
		s.logger.Error("work unit cleanup failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("work unit cleanup", "removed", n)
	}
}
