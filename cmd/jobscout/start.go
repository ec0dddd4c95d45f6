package main

import (
	"context"
	"log/slog"
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
	"github.com/jobscout/jobscout/internal/scheduler"
	"github.com/jobscout/jobscout/internal/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the discovery daemon",
	Long:  "Start the scheduler and work queue; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"interval", cfg.DiscoveryInterval.String(),
		"sources", len(cfg.Sources),
		"campaigns", len(cfg.Campaigns),
		"queue", cfg.Queue.Backend,
	)

	st, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, c := range cfg.Campaigns {
		if err := st.SyncCampaign(ctx, c.Campaign()); err != nil {
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
	if len(reg.All()) == 0 {
		logger.Error("no sources to discover from")
		os.Exit(1)
	}
	if err := reg.Bind(ctx, st); err != nil {
		logger.Error("failed to bind sources", "error", err)
		os.Exit(1)
	}

	handlers := queue.NewRegistry()
	q := buildQueue(cfg, handlers, st, logger)

	n := setupNotifier(cfg, httpClient, logger)
	sc := setupScorer(cfg, logger)

	stores := discovery.Stores{Offers: st, Runs: st, Sources: st}
	orch := discovery.New(reg, stores, q, n, cfg.MaxOfferAge, logger)

	pipe := pipeline.New(st, st, st, reg, q, sc, logger)
	if err := pipe.Register(handlers); err != nil {
		logger.Error("failed to register handlers", "error", err)
		os.Exit(1)
	}
	if err := handlers.Register(model.UnitDiscover, orch.Handler(st)); err != nil {
		logger.Error("failed to register discover handler", "error", err)
		os.Exit(1)
	}

	if err := q.Start(ctx); err != nil {
		logger.Error("failed to start queue", "error", err)
		os.Exit(1)
	}
	if mq, ok := q.(*queue.MemoryQueue); ok {
		go drainFailures(ctx, mq, logger)
	}

	sched := scheduler.New(orch, st, st, st, cfg.DiscoveryInterval, cfg.MaxOfferAge, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	sched.Stop()
	q.Stop()

	logger.Info("goodbye")
	return nil
}

// drainFailures logs terminally failed units so they are visible without
// inspecting the work-unit log.
func drainFailures(ctx context.Context, mq *queue.MemoryQueue, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-mq.Failures():
			if !ok {
				return
			}
			logger.Error("work unit failed",
				"unit", f.Unit.ID, "type", f.Unit.Type, "error", f.Err)
		}
	}
}
