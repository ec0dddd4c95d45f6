package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingRunner records which campaigns were run and can fail selectively.
type recordingRunner struct {
	mu     sync.Mutex
	ran    []string
	failOn string
}

func (r *recordingRunner) Run(_ context.Context, c model.Campaign) (*model.DiscoveryRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, c.ID)
	if c.ID == r.failOn {
		return nil, errors.New("source unavailable")
	}
	return &model.DiscoveryRun{ID: "run-" + c.ID, CampaignID: c.ID, Status: "completed"}, nil
}

func (r *recordingRunner) campaigns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ran...)
}

func seedCampaigns(t *testing.T, st *store.MemoryStore, specs ...model.Campaign) {
	t.Helper()
	for _, c := range specs {
		if err := st.SyncCampaign(context.Background(), c); err != nil {
			t.Fatalf("seed campaign %s: %v", c.ID, err)
		}
	}
}

func TestRunCycle_RunsEveryEnabledCampaign(t *testing.T) {
	st := store.NewMemoryStore()
	seedCampaigns(t, st,
		model.Campaign{ID: "c1", Name: "backend", Enabled: true},
		model.Campaign{ID: "c2", Name: "platform", Enabled: true},
		model.Campaign{ID: "c3", Name: "paused", Enabled: false},
	)

	runner := &recordingRunner{}
	s := New(runner, st, st, st, time.Hour, 30*24*time.Hour, discardLogger())
	s.runCycle(context.Background())

	got := runner.campaigns()
	if len(got) != 2 {
		t.Fatalf("ran %d campaigns, want 2: %v", len(got), got)
	}
	for _, id := range got {
		if id == "c3" {
			t.Error("disabled campaign should not run")
		}
	}
}

func TestRunCycle_FailureDoesNotStopCycle(t *testing.T) {
	st := store.NewMemoryStore()
	seedCampaigns(t, st,
		model.Campaign{ID: "c1", Name: "backend", Enabled: true},
		model.Campaign{ID: "c2", Name: "platform", Enabled: true},
	)

	runner := &recordingRunner{failOn: "c1"}
	s := New(runner, st, st, st, time.Hour, 30*24*time.Hour, discardLogger())
	s.runCycle(context.Background())

	if got := runner.campaigns(); len(got) != 2 {
		t.Fatalf("ran %d campaigns, want 2 despite failure: %v", len(got), got)
	}
}

func TestRunCycle_CancelledContextStops(t *testing.T) {
	st := store.NewMemoryStore()
	seedCampaigns(t, st, model.Campaign{ID: "c1", Name: "backend", Enabled: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &recordingRunner{}
	s := New(runner, st, st, st, time.Hour, 30*24*time.Hour, discardLogger())
	s.runCycle(ctx)

	if got := runner.campaigns(); len(got) != 0 {
		t.Errorf("expected no runs after cancellation, got %v", got)
	}
}

func TestStart_RunsImmediateCycle(t *testing.T) {
	st := store.NewMemoryStore()
	seedCampaigns(t, st, model.Campaign{ID: "c1", Name: "backend", Enabled: true})

	runner := &recordingRunner{}
	s := New(runner, st, st, st, time.Hour, 30*24*time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for {
		if len(runner.campaigns()) == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("immediate cycle never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSweepOffers_ExpiresAgedOffersOfDisabledCampaigns(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	seedCampaigns(t, st, model.Campaign{ID: "c1", Name: "paused", Enabled: false})

	old := time.Now().UTC().Add(-90 * 24 * time.Hour)
	offer := &model.JobOffer{
		CampaignID: "c1",
		SourceID:   1,
		Status:     model.StatusDiscovered,
		DiscoveredJob: model.DiscoveredJob{
			ExternalID: "j1",
			Title:      "Old Role",
			Company:    "Gone Inc",
			URL:        "https://example.com/jobs/j1",
			PostedAt:   &old,
		},
	}
	if err := st.CreateOffer(ctx, offer); err != nil {
		t.Fatalf("create offer: %v", err)
	}

	runner := &recordingRunner{}
	s := New(runner, st, st, st, time.Hour, 30*24*time.Hour, discardLogger())
	s.sweepOffers(ctx)

	got, err := st.GetOffer(ctx, offer.ID)
	if err != nil {
		t.Fatalf("get offer: %v", err)
	}
	if got.Status != model.StatusExpired {
		t.Errorf("offer status = %q, want EXPIRED", got.Status)
	}
}

func TestCleanupUnits_RemovesFinishedRows(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	rec := &model.WorkUnitRecord{
		ID:      "u1",
		Type:    model.UnitAnalyze,
		OwnerID: "c1",
		Status:  model.UnitStatusQueued,
	}
	if err := st.CreateUnit(ctx, rec); err != nil {
		t.Fatalf("create unit: %v", err)
	}
	if err := st.MarkUnitActive(ctx, "u1"); err != nil {
		t.Fatalf("mark active: %v", err)
	}
	if err := st.MarkUnitCompleted(ctx, "u1"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	runner := &recordingRunner{}
	s := New(runner, st, st, st, time.Hour, 30*24*time.Hour, discardLogger())
	s.unitRetention = 0

	s.cleanupUnits(ctx)

	counts, err := st.CountUnitsByStatus(ctx)
	if err != nil {
		t.Fatalf("count units: %v", err)
	}
	if counts[model.UnitStatusCompleted] != 0 {
		t.Errorf("completed units remaining: %d, want 0", counts[model.UnitStatusCompleted])
	}
}
