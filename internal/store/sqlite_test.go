package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jobscout/jobscout/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testOffer(campaignID string, sourceID int64, externalID string) *model.JobOffer {
	return &model.JobOffer{
		CampaignID: campaignID,
		SourceID:   sourceID,
		DiscoveredJob: model.DiscoveredJob{
			ExternalID:   externalID,
			Title:        "Backend Engineer",
			Company:      "Nimbus Labs",
			Location:     "Berlin, Germany",
			Requirements: []string{"Go", "SQL"},
			URL:          "https://example.com/jobs/" + externalID,
		},
	}
}

func TestCreateAndGetOffer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	posted := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)
	offer := testOffer("camp-1", 1, "ext-1")
	offer.PostedAt = &posted

	if err := s.CreateOffer(ctx, offer); err != nil {
		t.Fatalf("creating offer: %v", err)
	}
	if offer.ID == "" {
		t.Fatal("expected generated offer ID")
	}
	if offer.Status != model.StatusDiscovered {
		t.Errorf("status = %q, want DISCOVERED", offer.Status)
	}

	got, err := s.GetOffer(ctx, offer.ID)
	if err != nil {
		t.Fatalf("getting offer: %v", err)
	}
	if got.Title != "Backend Engineer" || got.Company != "Nimbus Labs" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if len(got.Requirements) != 2 {
		t.Errorf("requirements = %v", got.Requirements)
	}
	if got.PostedAt == nil || !got.PostedAt.Equal(posted) {
		t.Errorf("posted at = %v, want %v", got.PostedAt, posted)
	}
}

func TestCreateOffer_IdentityConstraint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateOffer(ctx, testOffer("camp-1", 1, "ext-1")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.CreateOffer(ctx, testOffer("camp-1", 1, "ext-1")); err == nil {
		t.Error("same campaign, source, and external ID must be rejected")
	}
	if err := s.CreateOffer(ctx, testOffer("camp-2", 1, "ext-1")); err != nil {
		t.Errorf("same posting in another campaign must insert: %v", err)
	}
}

func TestUpdateOfferStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	offer := testOffer("camp-1", 1, "ext-1")
	if err := s.CreateOffer(ctx, offer); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateOfferStatus(ctx, offer.ID, model.StatusAnalyzing); err != nil {
		t.Fatalf("updating status: %v", err)
	}
	got, _ := s.GetOffer(ctx, offer.ID)
	if got.Status != model.StatusAnalyzing {
		t.Errorf("status = %q", got.Status)
	}

	if err := s.UpdateOfferStatus(ctx, "missing", model.StatusMatched); err == nil {
		t.Error("expected error for unknown offer")
	}
}

func TestSetMatchResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	offer := testOffer("camp-1", 1, "ext-1")
	if err := s.CreateOffer(ctx, offer); err != nil {
		t.Fatal(err)
	}

	if err := s.SetMatchResult(ctx, offer.ID, 0.82, "strong overlap", model.StatusMatched); err != nil {
		t.Fatalf("setting match result: %v", err)
	}

	got, _ := s.GetOffer(ctx, offer.ID)
	if got.MatchScore == nil || *got.MatchScore != 0.82 {
		t.Errorf("score = %v", got.MatchScore)
	}
	if got.Status != model.StatusMatched || got.MatchSummary != "strong overlap" {
		t.Errorf("status/summary = %q / %q", got.Status, got.MatchSummary)
	}
}

func TestExpireOpenOffers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	old := now.Add(-60 * 24 * time.Hour)
	fresh := now.Add(-time.Hour)

	stale := testOffer("camp-1", 1, "stale")
	stale.PostedAt = &old
	fresh1 := testOffer("camp-1", 1, "fresh")
	fresh1.PostedAt = &fresh
	undated := testOffer("camp-1", 1, "undated")
	applied := testOffer("camp-1", 1, "applied")
	applied.PostedAt = &old
	applied.Status = model.StatusApplied

	for _, o := range []*model.JobOffer{stale, fresh1, undated, applied} {
		if err := s.CreateOffer(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	swept, err := s.ExpireOpenOffers(ctx, "camp-1", now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("expiring: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept %d offers, want 1", swept)
	}

	got, _ := s.GetOffer(ctx, stale.ID)
	if got.Status != model.StatusExpired {
		t.Errorf("stale offer status = %q", got.Status)
	}
	if got.ExpiresAt == nil {
		t.Error("expected expires_at to be set on sweep")
	}
	for name, o := range map[string]*model.JobOffer{"fresh": fresh1, "undated": undated} {
		got, _ := s.GetOffer(ctx, o.ID)
		if got.Status != model.StatusDiscovered {
			t.Errorf("%s offer status = %q, want DISCOVERED", name, got.Status)
		}
	}
	got, _ = s.GetOffer(ctx, applied.ID)
	if got.Status != model.StatusApplied {
		t.Errorf("terminal offer must not be swept, got %q", got.Status)
	}
}

func TestEnsureSource_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	src := model.JobSource{Name: "mock", DisplayName: "Mock", Type: model.SourceTypeMock, Active: true}
	first, err := s.EnsureSource(ctx, src)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := s.EnsureSource(ctx, src)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if first.ID == 0 || first.ID != second.ID {
		t.Errorf("IDs differ: %d vs %d", first.ID, second.ID)
	}

	sources, err := s.ListSources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 {
		t.Errorf("got %d sources, want 1", len(sources))
	}
}

func TestCampaignRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	salaryMin := 60000
	campaign := model.Campaign{
		ID:             "camp-1",
		Name:           "Backend search",
		TargetRoles:    []string{"backend engineer"},
		TargetLocations: []string{"Berlin"},
		ContractTypes:  []model.ContractType{model.ContractFullTime},
		RemoteOK:       true,
		SalaryMin:      &salaryMin,
		SalaryCurrency: "EUR",
		MatchThreshold: 0.7,
		Enabled:        true,
	}
	if err := s.SyncCampaign(ctx, campaign); err != nil {
		t.Fatalf("syncing campaign: %v", err)
	}

	got, err := s.GetCampaign(ctx, "camp-1")
	if err != nil {
		t.Fatalf("getting campaign: %v", err)
	}
	if got.Name != campaign.Name || !got.RemoteOK || got.MatchThreshold != 0.7 {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if got.SalaryMin == nil || *got.SalaryMin != 60000 {
		t.Errorf("salary min = %v", got.SalaryMin)
	}
	if len(got.TargetRoles) != 1 || got.TargetRoles[0] != "backend engineer" {
		t.Errorf("roles = %v", got.TargetRoles)
	}

	// Re-sync with changes updates in place.
	campaign.Enabled = false
	if err := s.SyncCampaign(ctx, campaign); err != nil {
		t.Fatal(err)
	}
	enabled, err := s.ListEnabledCampaigns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(enabled) != 0 {
		t.Errorf("disabled campaign still listed: %+v", enabled)
	}
	all, err := s.ListCampaigns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("ListCampaigns = %d campaigns, want 1", len(all))
	}
}

func TestWorkUnitLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &model.WorkUnitRecord{ID: "unit-1", Type: model.UnitAnalyze, Data: []byte(`{"offerId":"o1"}`)}
	if err := s.CreateUnit(ctx, rec); err != nil {
		t.Fatalf("creating unit: %v", err)
	}
	if err := s.MarkUnitActive(ctx, "unit-1"); err != nil {
		t.Fatalf("marking active: %v", err)
	}
	if err := s.MarkUnitFailed(ctx, "unit-1", "scorer unavailable"); err != nil {
		t.Fatalf("marking failed: %v", err)
	}

	counts, err := s.CountUnitsByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[model.UnitStatusFailed] != 1 {
		t.Errorf("counts = %v", counts)
	}

	// A finished unit older than the retention window is removed.
	removed, err := s.CleanupUnits(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed %d units, want 1", removed)
	}
}

func TestDiscoveryRunRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &model.DiscoveryRun{
		CampaignID: "camp-1",
		Status:     "completed",
		Found:      10,
		New:        6,
		Duplicates: 4,
		BySource: map[string]model.SourceResult{
			"mock": {JobCount: 10, QueryTimeMs: 120},
			"down": {Error: "connection refused"},
		},
		ByMatchType: map[string]int{"fuzzy": 3, "url": 1},
		StartedAt:   time.Now().UTC().Truncate(time.Second),
		Duration:    1500 * time.Millisecond,
	}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("creating run: %v", err)
	}

	runs, err := s.ListRunsByCampaign(ctx, "camp-1", 10)
	if err != nil {
		t.Fatalf("listing runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs", len(runs))
	}
	got := runs[0]
	if got.Found != 10 || got.New != 6 || got.Duplicates != 4 {
		t.Errorf("counters lost: %+v", got)
	}
	if got.BySource["mock"].JobCount != 10 || got.ByMatchType["fuzzy"] != 3 {
		t.Errorf("maps lost: %+v", got)
	}
	if got.BySource["down"].Error != "connection refused" {
		t.Errorf("source error lost: %+v", got.BySource)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Errorf("duration = %v", got.Duration)
	}
}
