package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jobscout/jobscout/internal/model"
)

// mockCompanies seeds the generator. The set is fixed so that repeated
// discovery runs return identical external IDs and deduplicate cleanly.
var mockCompanies = []struct {
	name     string
	location string
	remote   model.RemoteType
	salary   string
}{
	{"Nimbus Labs", "Berlin, Germany", model.RemoteTypeHybrid, "65000–85000 EUR"},
	{"Forgepoint", "Remote", model.RemoteTypeRemote, "90000+ USD"},
	{"Atlas Metrics", "Lyon, France", model.RemoteTypeOnSite, "up to 70000 EUR"},
	{"Driftware", "Remote, worldwide", model.RemoteTypeRemote, ""},
	{"Kestrel Systems", "Amsterdam, Netherlands", model.RemoteTypeHybrid, "70000–95000 EUR"},
}

// MockAdapter generates deterministic postings for each target role. It backs
// local development and tests; it is also the only built-in source flagged
// for auto-apply.
type MockAdapter struct {
	base
	jobsPerRole int
	now         func() time.Time // injectable for tests
}

// NewMockAdapter creates the mock source. jobsPerRole values outside 1..len(mockCompanies)
// are clamped.
func NewMockAdapter(jobsPerRole int) *MockAdapter {
	if jobsPerRole < 1 || jobsPerRole > len(mockCompanies) {
		jobsPerRole = 3
	}
	return &MockAdapter{
		base: base{
			name:        "mock",
			displayName: "Mock Generator",
			sourceType:  model.SourceTypeMock,
			autoApply:   true,
		},
		jobsPerRole: jobsPerRole,
		now:         time.Now,
	}
}

// Discover generates jobsPerRole postings per target role, then applies the
// same location filtering a real source would.
func (a *MockAdapter) Discover(_ context.Context, criteria model.SearchCriteria) DiscoveryResult {
	roles := criteria.Roles
	if len(roles) == 0 {
		roles = []string{"Software Engineer"}
	}

	var jobs []model.DiscoveredJob
	for _, role := range roles {
		for i := 0; i < a.jobsPerRole; i++ {
			co := mockCompanies[i]
			if !matchesLocation(co.location, criteria) {
				continue
			}

			slug := strings.ToLower(strings.Join(strings.Fields(role), "-"))
			externalID := fmt.Sprintf("mock-%s-%d", slug, i+1)
			posted := a.now().Add(-time.Duration(i*24) * time.Hour)

			jobs = append(jobs, model.DiscoveredJob{
				ExternalID: externalID,
				Title:      role,
				Company:    co.name,
				Location:   co.location,
				Description: fmt.Sprintf(
					"%s is hiring a %s.\n\nRequirements:\n- 3+ years of experience\n- Strong %s fundamentals\n- Fluent English\n\n",
					co.name, role, role,
				),
				Requirements: []string{"3+ years of experience", fmt.Sprintf("Strong %s fundamentals", role), "Fluent English"},
				Salary:       co.salary,
				ContractType: model.ContractFullTime,
				RemoteType:   co.remote,
				URL:          fmt.Sprintf("https://jobs.example.com/%s/%s", slugify(co.name), externalID),
				PostedAt:     &posted,
				ApplyURL:     fmt.Sprintf("https://jobs.example.com/%s/%s/apply", slugify(co.name), externalID),
			})
		}
	}

	return DiscoveryResult{Jobs: jobs}
}

func slugify(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}

// HealthCheck always reports healthy; there is no upstream to probe.
func (a *MockAdapter) HealthCheck(_ context.Context) HealthStatus {
	return healthy("mock source", 0)
}
