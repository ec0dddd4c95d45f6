package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jobscout/jobscout/internal/adapter"
	"github.com/jobscout/jobscout/internal/config"
	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/notifier"
	"github.com/jobscout/jobscout/internal/queue"
	"github.com/jobscout/jobscout/internal/ratelimit"
	"github.com/jobscout/jobscout/internal/registry"
	"github.com/jobscout/jobscout/internal/retry"
	"github.com/jobscout/jobscout/internal/scorer"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobscout",
	Short: "Job discovery radar — many sources, one pipeline",
	Long:  "JobScout polls job sources, deduplicates new offers across them, and scores each against your search campaigns.",
	// Default to `start` so that `jobscout` with no args runs the daemon.
	// This preserves compatibility with systemd unit files that invoke the binary directly.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSCOUT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBSCOUT_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBSCOUT_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// setupScorer picks the LLM scorer when configured, the heuristic otherwise.
func setupScorer(cfg *config.Config, logger *slog.Logger) model.Scorer {
	if cfg.LLM.Enabled {
		logger.Info("using llm scorer", "model", cfg.LLM.Model)
		provider := scorer.NewOpenAIProvider(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model,
			&http.Client{Timeout: cfg.LLM.Timeout})
		return scorer.NewLLMScorer(provider, scorer.MatchAnalysisTemplate, logger)
	}
	return scorer.NewHeuristic()
}

func createAdapter(src config.SourceConfig, client *adapter.Client, logger *slog.Logger) (adapter.SourceAdapter, bool) {
	switch model.SourceType(src.Type) {
	case model.SourceTypeMock:
		return adapter.NewMockAdapter(src.JobsPerRole), true
	case model.SourceTypeFeed:
		return adapter.NewFeedAdapter(src.Name, src.DisplayName, src.FeedURL, client), true
	case model.SourceTypeAPI:
		return adapter.NewAggregatorAdapter(adapter.AggregatorConfig{
			Name:        src.Name,
			DisplayName: src.DisplayName,
			BaseURL:     src.BaseURL,
			Country:     src.Country,
			AppID:       src.AppID,
			AppKey:      src.AppKey,
			Currency:    src.Currency,
		}, client), true
	case model.SourceTypeSearchIndex:
		return adapter.NewSearchIndexAdapter(adapter.SearchIndexConfig{
			Name:        src.Name,
			DisplayName: src.DisplayName,
			BaseURL:     src.BaseURL,
			AppID:       src.AppID,
			APIKey:      src.APIKey,
			IndexName:   src.IndexName,
		}, client), true
	default:
		logger.Warn("unsupported source type, skipping", "source", src.Name, "type", src.Type)
		return nil, false
	}
}

// buildRegistry constructs every enabled adapter behind a shared rate-limited,
// retried HTTP client and registers them.
func buildRegistry(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (*registry.Registry, error) {
	limiter := ratelimit.NewSourceLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.SourceOverrides)
	policy := retry.Policy{MaxRetries: cfg.Retry.MaxRetries, BaseDelay: cfg.Retry.BaseDelay, Logger: logger}
	client := adapter.NewClient(httpClient, limiter, policy)

	reg := registry.New(logger)
	for _, src := range cfg.Sources {
		if !src.Enabled {
			continue
		}
		a, ok := createAdapter(src, client, logger)
		if !ok {
			continue
		}
		if err := reg.Add(a); err != nil {
			return nil, err
		}
		logger.Info("registered source", "name", a.Name(), "type", a.Type())
	}
	return reg, nil
}

func buildQueue(cfg *config.Config, handlers *queue.Registry, log model.WorkUnitLog, logger *slog.Logger) queue.Queue {
	if cfg.Queue.Backend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Queue.RedisAddr})
		logger.Info("using redis queue", "addr", cfg.Queue.RedisAddr, "workers", cfg.Queue.Workers)
		return queue.NewRedisQueue(client, handlers, log, cfg.Queue.Workers, logger)
	}
	return queue.NewMemoryQueue(handlers, log, logger)
}
