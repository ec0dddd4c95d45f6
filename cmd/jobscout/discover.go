package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobscout/jobscout/internal/discovery"
	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/pipeline"
	"github.com/jobscout/jobscout/internal/queue"
	"github.com/jobscout/jobscout/internal/store"
)

var (
	discoverDryRun   bool
	discoverCampaign string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run one discovery pass, then exit",
	Long:  "One-shot discovery: polls every source for each enabled campaign, scores the new offers, prints run summaries, exits.",
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverDryRun, "dry-run", false, "do not persist anything; everything runs against an in-memory store")
	discoverCmd.Flags().StringVar(&discoverCampaign, "campaign", "", "run only the named campaign")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		offers  model.OfferStore
		runs    model.RunStore
		sources model.SourceStore
		units   model.WorkUnitLog
		apps    model.ApplicationStore
		camps   interface {
			model.CampaignStore
			SyncCampaign(ctx context.Context, c model.Campaign) error
		}
	)

	if discoverDryRun {
		logger.Info("dry-run mode: nothing will be persisted")
		mem := store.NewMemoryStore()
		offers, runs, sources, units, camps, apps = mem, mem, mem, mem, mem, mem
	} else {
		st, err := store.NewSQLiteStore(cfg.DatabasePath)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer st.Close()
		offers, runs, sources, units, camps, apps = st, st, st, st, st, st
	}

	for _, c := range cfg.Campaigns {
		if err := camps.SyncCampaign(ctx, c.Campaign()); err != nil {
			logger.Error("failed to sync campaign", "campaign", c.ID, "error", err)
			os.Exit(1)
		}
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	reg, err := buildRegistry(cfg, httpClient, logger)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		os.Exit(1)
	}
	if err := reg.Bind(ctx, sources); err != nil {
		logger.Error("failed to bind sources", "error", err)
		os.Exit(1)
	}

	// One-shot runs always use the in-process queue so analysis completes
	// before the command exits.
	handlers := queue.NewRegistry()
	q := queue.NewMemoryQueue(handlers, units, logger)

	n := setupNotifier(cfg, httpClient, logger)
	sc := setupScorer(cfg, logger)

	stores := discovery.Stores{Offers: offers, Runs: runs, Sources: sources}
	orch := discovery.New(reg, stores, q, n, cfg.MaxOfferAge, logger)

	pipe := pipeline.New(offers, camps, apps, reg, q, sc, logger)
	if err := pipe.Register(handlers); err != nil {
		logger.Error("failed to register handlers", "error", err)
		os.Exit(1)
	}

	if err := q.Start(ctx); err != nil {
		logger.Error("failed to start queue", "error", err)
		os.Exit(1)
	}
	go drainFailures(ctx, q, logger)

	selected, err := selectCampaigns(ctx, camps, discoverCampaign)
	if err != nil {
		logger.Error("failed to resolve campaigns", "error", err)
		os.Exit(1)
	}
	if len(selected) == 0 {
		logger.Error("no enabled campaigns to run")
		os.Exit(1)
	}

	for _, campaign := range selected {
		run, err := orch.Run(ctx, campaign)
		if err != nil {
			logger.Error("discovery failed", "campaign", campaign.ID, "error", err)
			continue
		}
		printRun(run)
	}

	waitForIdle(ctx, q, 60*time.Second)
	q.Stop()
	return nil
}

func selectCampaigns(ctx context.Context, camps model.CampaignStore, only string) ([]model.Campaign, error) {
	if only != "" {
		c, err := camps.GetCampaign(ctx, only)
		if err != nil {
			return nil, fmt.Errorf("campaign %q: %w", only, err)
		}
		return []model.Campaign{*c}, nil
	}
	return camps.ListEnabledCampaigns(ctx)
}

func printRun(run *model.DiscoveryRun) {
	fmt.Printf("\ncampaign %s: %s in %s\n", run.CampaignID, run.Status, run.Duration.Round(time.Millisecond))
	fmt.Printf("  found %d, new %d, duplicates %d, expired %d\n", run.Found, run.New, run.Duplicates, run.Expired)
	for source, result := range run.BySource {
		line := fmt.Sprintf("  source %-16s %d (%dms)", source, result.JobCount, result.QueryTimeMs)
		if result.Error != "" {
			line += " error: " + result.Error
		}
		fmt.Println(line)
	}
	for matchType, count := range run.ByMatchType {
		fmt.Printf("  dup by %-15s %d\n", matchType, count)
	}
	if run.Error != "" {
		fmt.Printf("  error: %s\n", run.Error)
	}
}

// waitForIdle blocks until every queued unit has been processed or the
// timeout elapses.
func waitForIdle(ctx context.Context, q queue.Queue, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
		stats, err := q.Stats(ctx)
		if err != nil {
			return
		}
		if stats.Waiting == 0 && stats.Active == 0 {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}
