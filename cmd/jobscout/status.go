package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobscout/jobscout/internal/config"
	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/queue"
	"github.com/jobscout/jobscout/internal/status"
	"github.com/jobscout/jobscout/internal/store"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show source health and queue depth",
	Long:  "Probes every configured source and prints a health table with queue depth and recent discovery runs.",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "keep the dashboard open and re-probe periodically")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: 15 * time.Second}
	reg, err := buildRegistry(cfg, httpClient, logger)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		os.Exit(1)
	}

	collector := &status.Collector{Registry: reg}

	for _, c := range cfg.Campaigns {
		collector.Campaigns = append(collector.Campaigns, c.Campaign())
	}

	// The durable log and run history live in the database; open it read-only
	// in spirit (no writes happen on this path).
	if st, err := store.NewSQLiteStore(cfg.DatabasePath); err == nil {
		defer st.Close()
		collector.Runs = st
		collector.Queue = statsQueue(cfg, st, logger)
	} else {
		logger.Warn("database unavailable, showing source health only", "error", err)
	}

	if statusWatch {
		return status.RunWatch(collector, 30*time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	fmt.Print(status.Render(collector.Collect(ctx)))
	return nil
}

// statsQueue builds a queue handle purely for Stats; it is never started.
func statsQueue(cfg *config.Config, st model.WorkUnitLog, logger *slog.Logger) queue.Queue {
	handlers := queue.NewRegistry()
	return buildQueue(cfg, handlers, st, logger)
}
