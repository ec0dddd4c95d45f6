package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jobscout/jobscout/internal/model"
)

const searchIndexHitsPerPage = 100

// SearchIndexConfig identifies an Algolia-compatible search index.
type SearchIndexConfig struct {
	Name        string // registry slug, defaults to "search-index"
	DisplayName string
	BaseURL     string // e.g. https://APPID-dsn.algolia.net
	AppID       string
	APIKey      string
	IndexName   string
}

type searchIndexQuery struct {
	Query       string `json:"query"`
	HitsPerPage int    `json:"hitsPerPage"`
	Filters     string `json:"filters,omitempty"`
}

type searchIndexResponse struct {
	Hits   []searchIndexHit `json:"hits"`
	NbHits int              `json:"nbHits"`
}

type searchIndexHit struct {
	ObjectID       string   `json:"objectID"`
	Title          string   `json:"title"`
	CompanyName    string   `json:"company_name"`
	Location       string   `json:"location"`
	Description    string   `json:"description"`
	Tags           []string `json:"tags"`
	SalaryRange    string   `json:"salary_range"`
	JobType        string   `json:"job_type"`
	RemotePolicy   string   `json:"remote_policy"`
	URL            string   `json:"url"`
	ApplicationURL string   `json:"application_url"`
	PublishedAt    string   `json:"published_at"`
}

// SearchIndexAdapter queries a hosted search index of job postings. One query
// is issued per target role; hits are merged on object ID.
type SearchIndexAdapter struct {
	base
	cfg    SearchIndexConfig
	client *Client
}

func NewSearchIndexAdapter(cfg SearchIndexConfig, client *Client) *SearchIndexAdapter {
	if cfg.Name == "" {
		cfg.Name = "search-index"
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = "Search Index"
	}
	return &SearchIndexAdapter{
		base: base{
			name:        cfg.Name,
			displayName: cfg.DisplayName,
			sourceType:  model.SourceTypeSearchIndex,
		},
		cfg:    cfg,
		client: client,
	}
}

func (a *SearchIndexAdapter) authHeader() http.Header {
	h := http.Header{}
	h.Set("X-Algolia-Application-Id", a.cfg.AppID)
	h.Set("X-Algolia-API-Key", a.cfg.APIKey)
	return h
}

func (a *SearchIndexAdapter) queryURL() string {
	return fmt.Sprintf("%s/1/indexes/%s/query",
		strings.TrimSuffix(a.cfg.BaseURL, "/"), url.PathEscape(a.cfg.IndexName))
}

func (a *SearchIndexAdapter) Discover(ctx context.Context, criteria model.SearchCriteria) DiscoveryResult {
	roles := criteria.Roles
	if len(roles) == 0 {
		roles = []string{""}
	}

	var result DiscoveryResult
	seen := make(map[string]bool)

	for _, role := range roles {
		query := searchIndexQuery{Query: role, HitsPerPage: searchIndexHitsPerPage}
		var resp searchIndexResponse
		if err := a.client.postJSON(ctx, a.name, a.queryURL(), a.authHeader(), query, &resp); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("query %q: %v", role, err))
			continue
		}

		for _, hit := range resp.Hits {
			if seen[hit.ObjectID] {
				continue
			}
			seen[hit.ObjectID] = true

			job := a.convert(hit)
			if !matchesLocation(job.Location, criteria) {
				continue
			}
			result.Jobs = append(result.Jobs, job)
		}
	}
	return result
}

func (a *SearchIndexAdapter) convert(hit searchIndexHit) model.DiscoveredJob {
	description := extractText(hit.Description)
	requirements := extractRequirements(description)
	if len(requirements) == 0 && len(hit.Tags) > 0 {
		tags := hit.Tags
		if len(tags) > model.MaxRequirements {
			tags = tags[:model.MaxRequirements]
		}
		requirements = tags
	}

	applyURL := hit.ApplicationURL
	if applyURL == "" {
		applyURL = hit.URL
	}

	return model.DiscoveredJob{
		ExternalID:   stableExternalID(hit.ObjectID, hit.URL),
		Title:        strings.TrimSpace(hit.Title),
		Company:      strings.TrimSpace(hit.CompanyName),
		Location:     strings.TrimSpace(hit.Location),
		Description:  description,
		Requirements: requirements,
		Salary:       strings.TrimSpace(hit.SalaryRange),
		ContractType: normalizeContract(hit.JobType),
		RemoteType:   normalizeRemote(hit.RemotePolicy, hit.Location),
		URL:          hit.URL,
		ApplyURL:     applyURL,
		PostedAt:     parsePubDate(hit.PublishedAt),
	}
}

// HealthCheck issues an empty query rather than a GET probe; Algolia-style
// endpoints reject unauthenticated GETs.
func (a *SearchIndexAdapter) HealthCheck(ctx context.Context) HealthStatus {
	start := time.Now()
	var resp searchIndexResponse
	err := a.client.postJSON(ctx, a.name, a.queryURL(), a.authHeader(),
		searchIndexQuery{HitsPerPage: 1}, &resp)
	elapsed := time.Since(start)
	if err != nil {
		return unhealthy(err.Error(), elapsed)
	}
	return healthy(fmt.Sprintf("index reachable, %d postings", resp.NbHits), elapsed)
}
