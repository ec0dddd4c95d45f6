package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jobscout/jobscout/internal/model"
)

// Config is the root configuration for the JobScout daemon.
type Config struct {
	DatabasePath      string
	DiscoveryInterval time.Duration
	MaxOfferAge       time.Duration
	Sources           []SourceConfig
	Campaigns         []CampaignConfig
	Queue             QueueConfig
	RateLimit         RateLimitConfig
	Retry             RetryConfig
	Notification      NotificationConfig
	LLM               LLMConfig
}

// SourceConfig describes a single external source to register.
type SourceConfig struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Type        string `yaml:"type"` // "mock", "feed", "api", "search_index"
	Enabled     bool   `yaml:"enabled"`

	// mock
	JobsPerRole int `yaml:"jobs_per_role"`

	// feed
	FeedURL string `yaml:"feed_url"`

	// api (aggregator) and search_index
	BaseURL string `yaml:"base_url"`
	AppID   string `yaml:"app_id"`
	AppKey  string `yaml:"app_key"`
	APIKey  string `yaml:"api_key"`

	// api only
	Country  string `yaml:"country"`
	Currency string `yaml:"currency"`

	// search_index only
	IndexName string `yaml:"index"`
}

// CampaignConfig is the YAML shape of one configured job search. It is synced
// into the campaigns table on startup.
type CampaignConfig struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Roles          []string `yaml:"roles"`
	Locations      []string `yaml:"locations"`
	ContractTypes  []string `yaml:"contract_types"`
	RemoteOK       bool     `yaml:"remote_ok"`
	SalaryMin      *int     `yaml:"salary_min"`
	SalaryMax      *int     `yaml:"salary_max"`
	SalaryCurrency string   `yaml:"salary_currency"`
	Sources        []string `yaml:"sources"`
	MatchThreshold float64  `yaml:"match_threshold"`
	AutoApply      bool     `yaml:"auto_apply"`
	Enabled        bool     `yaml:"enabled"`
}

// Campaign converts the YAML shape into the domain model.
func (c CampaignConfig) Campaign() model.Campaign {
	contracts := make([]model.ContractType, 0, len(c.ContractTypes))
	for _, ct := range c.ContractTypes {
		contracts = append(contracts, model.ContractType(ct))
	}
	return model.Campaign{
		ID:              c.ID,
		Name:            c.Name,
		TargetRoles:     c.Roles,
		TargetLocations: c.Locations,
		ContractTypes:   contracts,
		RemoteOK:        c.RemoteOK,
		SalaryMin:       c.SalaryMin,
		SalaryMax:       c.SalaryMax,
		SalaryCurrency:  c.SalaryCurrency,
		SourceNames:     c.Sources,
		MatchThreshold:  c.MatchThreshold,
		AutoApply:       c.AutoApply,
		Enabled:         c.Enabled,
	}
}

// QueueConfig selects the work-unit backend.
type QueueConfig struct {
	Backend   string // "memory" or "redis"
	RedisAddr string
	Workers   int
}

// RateLimitConfig controls source-level rate limiting.
type RateLimitConfig struct {
	MinDelay        time.Duration            // minimum gap between requests to the same source
	SourceOverrides map[string]time.Duration // per-source overrides, keyed by source name
}

// RetryConfig controls HTTP retry behavior for all network adapters.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// LLMConfig controls the optional LLM scoring layer. When disabled the
// heuristic scorer is used.
type LLMConfig struct {
	Enabled bool
	BaseURL string        // defaults to https://api.openai.com/v1
	Model   string        // model identifier, e.g. "gpt-4o-mini"
	APIKey  string        // expanded from env var by Load
	Timeout time.Duration // per-request timeout
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultDatabasePath  = "jobscout.db"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations
// as strings).
type rawConfig struct {
	Database          string             `yaml:"database"`
	DiscoveryInterval string             `yaml:"discovery_interval"`
	MaxOfferAge       string             `yaml:"max_offer_age"`
	Sources           []SourceConfig     `yaml:"sources"`
	Campaigns         []CampaignConfig   `yaml:"campaigns"`
	Queue             rawQueueConfig     `yaml:"queue"`
	RateLimit         rawRateLimitConfig `yaml:"rate_limit"`
	Retry             rawRetryConfig     `yaml:"retry"`
	Notification      NotificationConfig `yaml:"notification"`
	LLM               rawLLMConfig       `yaml:"llm"`
}

type rawQueueConfig struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	Workers   int    `yaml:"workers"`
}

type rawRateLimitConfig struct {
	MinDelay        string            `yaml:"min_delay"`
	SourceOverrides map[string]string `yaml:"source_overrides"`
}

type rawRetryConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

type rawLLMConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	interval := 6 * time.Hour
	if raw.DiscoveryInterval != "" {
		interval, err = time.ParseDuration(raw.DiscoveryInterval)
		if err != nil {
			return nil, fmt.Errorf("parse discovery_interval %q: %w", raw.DiscoveryInterval, err)
		}
	}

	maxAge := 30 * 24 * time.Hour
	if raw.MaxOfferAge != "" {
		maxAge, err = time.ParseDuration(raw.MaxOfferAge)
		if err != nil {
			return nil, fmt.Errorf("parse max_offer_age %q: %w", raw.MaxOfferAge, err)
		}
	}

	minDelay := 2 * time.Second
	if raw.RateLimit.MinDelay != "" {
		minDelay, err = time.ParseDuration(raw.RateLimit.MinDelay)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.min_delay %q: %w", raw.RateLimit.MinDelay, err)
		}
	}

	overrides := make(map[string]time.Duration)
	for name, rawDelay := range raw.RateLimit.SourceOverrides {
		d, err := time.ParseDuration(rawDelay)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.source_overrides[%q]: %w", name, err)
		}
		overrides[name] = d
	}

	maxRetries := 2
	if raw.Retry.MaxRetries != nil {
		maxRetries = *raw.Retry.MaxRetries
	}
	baseDelay := 5 * time.Second
	if raw.Retry.BaseDelay != "" {
		baseDelay, err = time.ParseDuration(raw.Retry.BaseDelay)
		if err != nil {
			return nil, fmt.Errorf("parse retry.base_delay %q: %w", raw.Retry.BaseDelay, err)
		}
	}

	llmTimeout := 30 * time.Second
	if raw.LLM.Timeout != "" {
		llmTimeout, err = time.ParseDuration(raw.LLM.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse llm.timeout %q: %w", raw.LLM.Timeout, err)
		}
	}

	llmBaseURL := raw.LLM.BaseURL
	if llmBaseURL == "" {
		llmBaseURL = defaultOpenAIBaseURL
	}

	dbPath := raw.Database
	if dbPath == "" {
		dbPath = defaultDatabasePath
	}

	backend := raw.Queue.Backend
	if backend == "" {
		backend = "memory"
	}
	workers := raw.Queue.Workers
	if workers <= 0 {
		workers = 5
	}

	cfg := &Config{
		DatabasePath:      dbPath,
		DiscoveryInterval: interval,
		MaxOfferAge:       maxAge,
		Sources:           raw.Sources,
		Campaigns:         raw.Campaigns,
		Queue: QueueConfig{
			Backend:   backend,
			RedisAddr: raw.Queue.RedisAddr,
			Workers:   workers,
		},
		RateLimit: RateLimitConfig{
			MinDelay:        minDelay,
			SourceOverrides: overrides,
		},
		Retry: RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  baseDelay,
		},
		Notification: raw.Notification,
		LLM: LLMConfig{
			Enabled: raw.LLM.Enabled,
			BaseURL: llmBaseURL,
			Model:   raw.LLM.Model,
			APIKey:  raw.LLM.APIKey,
			Timeout: llmTimeout,
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validSourceTypes = map[string]bool{
	string(model.SourceTypeMock):        true,
	string(model.SourceTypeFeed):        true,
	string(model.SourceTypeAPI):         true,
	string(model.SourceTypeSearchIndex): true,
}

func validate(cfg *Config) error {
	if cfg.DiscoveryInterval <= 0 {
		return fmt.Errorf("discovery_interval must be positive, got %v", cfg.DiscoveryInterval)
	}
	if cfg.MaxOfferAge <= 0 {
		return fmt.Errorf("max_offer_age must be positive, got %v", cfg.MaxOfferAge)
	}

	if cfg.Queue.Backend != "memory" && cfg.Queue.Backend != "redis" {
		return fmt.Errorf("queue.backend must be \"memory\" or \"redis\", got %q", cfg.Queue.Backend)
	}
	if cfg.Queue.Backend == "redis" && cfg.Queue.RedisAddr == "" {
		return fmt.Errorf("queue.redis_addr is required when queue.backend is \"redis\"")
	}

	seen := make(map[string]bool)
	enabled := 0
	for i, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("sources[%d].name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		seen[s.Name] = true
		if !validSourceTypes[s.Type] {
			return fmt.Errorf("sources[%q].type %q is not one of mock, feed, api, search_index", s.Name, s.Type)
		}
		if err := validateSourceSettings(s); err != nil {
			return err
		}
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	campaignIDs := make(map[string]bool)
	for i, c := range cfg.Campaigns {
		if c.ID == "" {
			return fmt.Errorf("campaigns[%d].id is required", i)
		}
		if campaignIDs[c.ID] {
			return fmt.Errorf("duplicate campaign id %q", c.ID)
		}
		campaignIDs[c.ID] = true
		if len(c.Roles) == 0 {
			return fmt.Errorf("campaigns[%q].roles must not be empty", c.ID)
		}
		if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
			return fmt.Errorf("campaigns[%q].match_threshold must be in [0,1], got %v", c.ID, c.MatchThreshold)
		}
		for _, name := range c.Sources {
			if !seen[name] {
				return fmt.Errorf("campaigns[%q] references unknown source %q", c.ID, name)
			}
		}
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	}

	if cfg.LLM.Enabled {
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required when llm.enabled is true")
		}
		if cfg.LLM.Model == "" {
			return fmt.Errorf("llm.model is required when llm.enabled is true")
		}
	}

	return nil
}

func validateSourceSettings(s SourceConfig) error {
	switch s.Type {
	case string(model.SourceTypeFeed):
		if s.FeedURL == "" {
			return fmt.Errorf("sources[%q].feed_url is required for feed sources", s.Name)
		}
	case string(model.SourceTypeAPI):
		if s.AppID == "" || s.AppKey == "" {
			return fmt.Errorf("sources[%q] requires app_id and app_key", s.Name)
		}
	case string(model.SourceTypeSearchIndex):
		if s.BaseURL == "" || s.AppID == "" || s.APIKey == "" || s.IndexName == "" {
			return fmt.Errorf("sources[%q] requires base_url, app_id, api_key, and index", s.Name)
		}
	}
	return nil
}
