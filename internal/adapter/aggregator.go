package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jobscout/jobscout/internal/model"
)

const (
	aggregatorPageSize = 50
	aggregatorMaxPages = 3
)

// aggregatorResponse is the Adzuna-style search envelope.
type aggregatorResponse struct {
	Count   int             `json:"count"`
	Results []aggregatorJob `json:"results"`
}

type aggregatorJob struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Company struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	Description  string  `json:"description"`
	SalaryMin    float64 `json:"salary_min"`
	SalaryMax    float64 `json:"salary_max"`
	ContractType string  `json:"contract_type"`
	ContractTime string  `json:"contract_time"`
	RedirectURL  string  `json:"redirect_url"`
	Created      string  `json:"created"`
}

// AggregatorConfig carries the credentials and endpoint for one aggregator
// account.
type AggregatorConfig struct {
	Name        string // registry slug, defaults to "aggregator"
	DisplayName string
	BaseURL     string // e.g. https://api.adzuna.com/v1/api/jobs
	Country     string // two-letter market code, e.g. "gb"
	AppID       string
	AppKey      string
	Currency    string // currency the market's salaries are quoted in
}

// AggregatorAdapter queries a paged REST job aggregator (Adzuna-compatible).
// One query is issued per target role, walking pages until a short page or
// the page cap.
type AggregatorAdapter struct {
	base
	cfg    AggregatorConfig
	client *Client
}

func NewAggregatorAdapter(cfg AggregatorConfig, client *Client) *AggregatorAdapter {
	if cfg.Country == "" {
		cfg.Country = "gb"
	}
	if cfg.Currency == "" {
		cfg.Currency = "GBP"
	}
	if cfg.Name == "" {
		cfg.Name = "aggregator"
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = "Job Aggregator API"
	}
	return &AggregatorAdapter{
		base: base{
			name:        cfg.Name,
			displayName: cfg.DisplayName,
			sourceType:  model.SourceTypeAPI,
		},
		cfg:    cfg,
		client: client,
	}
}

func (a *AggregatorAdapter) Discover(ctx context.Context, criteria model.SearchCriteria) DiscoveryResult {
	roles := criteria.Roles
	if len(roles) == 0 {
		roles = []string{""}
	}

	var result DiscoveryResult
	seen := make(map[string]bool)

	for _, role := range roles {
		jobs, err := a.search(ctx, role, criteria)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("search %q: %v", role, err))
			continue
		}
		for _, job := range jobs {
			if seen[job.ExternalID] {
				continue
			}
			seen[job.ExternalID] = true
			result.Jobs = append(result.Jobs, job)
		}
	}
	return result
}

// search walks result pages for one role query.
func (a *AggregatorAdapter) search(ctx context.Context, role string, criteria model.SearchCriteria) ([]model.DiscoveredJob, error) {
	var jobs []model.DiscoveredJob

	for page := 1; page <= aggregatorMaxPages; page++ {
		var resp aggregatorResponse
		if err := a.client.getJSON(ctx, a.name, a.pageURL(role, criteria, page), nil, &resp); err != nil {
			return jobs, err
		}

		for _, raw := range resp.Results {
			job := a.convert(raw)
			if !matchesLocation(job.Location, criteria) {
				continue
			}
			if !meetsSalaryFloor(criteria, raw.SalaryMin, raw.SalaryMax) {
				continue
			}
			jobs = append(jobs, job)
		}

		if len(resp.Results) < aggregatorPageSize {
			break
		}
	}
	return jobs, nil
}

func (a *AggregatorAdapter) pageURL(role string, criteria model.SearchCriteria, page int) string {
	q := url.Values{}
	q.Set("app_id", a.cfg.AppID)
	q.Set("app_key", a.cfg.AppKey)
	q.Set("results_per_page", fmt.Sprintf("%d", aggregatorPageSize))
	q.Set("content-type", "application/json")
	if role != "" {
		q.Set("what", role)
	}
	if len(criteria.Locations) > 0 {
		q.Set("where", criteria.Locations[0])
	}
	if criteria.SalaryMin != nil {
		q.Set("salary_min", fmt.Sprintf("%d", *criteria.SalaryMin))
	}
	return fmt.Sprintf("%s/%s/search/%d?%s",
		strings.TrimSuffix(a.cfg.BaseURL, "/"), a.cfg.Country, page, q.Encode())
}

func (a *AggregatorAdapter) convert(raw aggregatorJob) model.DiscoveredJob {
	description := extractText(raw.Description)
	contract := normalizeContract(raw.ContractTime)
	if contract == "" {
		contract = normalizeContract(raw.ContractType)
	}

	return model.DiscoveredJob{
		ExternalID:   stableExternalID(raw.ID, raw.RedirectURL),
		Title:        strings.TrimSpace(raw.Title),
		Company:      strings.TrimSpace(raw.Company.DisplayName),
		Location:     strings.TrimSpace(raw.Location.DisplayName),
		Description:  description,
		Requirements: extractRequirements(description),
		Salary:       formatSalary(raw.SalaryMin, raw.SalaryMax, a.cfg.Currency),
		ContractType: contract,
		RemoteType:   normalizeRemote("", raw.Location.DisplayName),
		URL:          raw.RedirectURL,
		ApplyURL:     raw.RedirectURL,
		PostedAt:     parsePubDate(raw.Created),
	}
}

func (a *AggregatorAdapter) HealthCheck(ctx context.Context) HealthStatus {
	return a.client.probe(ctx, a.pageURL("", model.SearchCriteria{}, 1))
}
