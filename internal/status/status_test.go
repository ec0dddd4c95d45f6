package status

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jobscout/jobscout/internal/adapter"
	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/registry"
	"github.com/jobscout/jobscout/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(discardLogger())
	if err := reg.Add(adapter.NewMockAdapter(1)); err != nil {
		t.Fatalf("add adapter: %v", err)
	}
	return reg
}

func TestCollect_GathersSourceHealth(t *testing.T) {
	c := &Collector{Registry: testRegistry(t)}

	report := c.Collect(context.Background())

	if len(report.Sources) != 1 {
		t.Fatalf("sources = %d, want 1", len(report.Sources))
	}
	row := report.Sources[0]
	if row.Name != "mock" || !row.Healthy {
		t.Errorf("row = %+v, want healthy mock", row)
	}
	if report.CheckedAt.IsZero() {
		t.Error("checked-at not set")
	}
}

func TestCollect_IncludesRecentRuns(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	for i, id := range []string{"r1", "r2"} {
		run := &model.DiscoveryRun{
			ID:         id,
			CampaignID: "c1",
			Status:     "completed",
			Found:      i + 1,
			StartedAt:  time.Now().Add(time.Duration(-i) * time.Hour),
		}
		if err := st.CreateRun(ctx, run); err != nil {
			t.Fatalf("seed run: %v", err)
		}
	}

	c := &Collector{
		Registry:  testRegistry(t),
		Runs:      st,
		Campaigns: []model.Campaign{{ID: "c1"}},
	}
	report := c.Collect(ctx)

	if len(report.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(report.Runs))
	}
	if report.Runs[0].StartedAt.Before(report.Runs[1].StartedAt) {
		t.Error("runs should be newest first")
	}
}

func TestRender_ShowsSourcesAndRuns(t *testing.T) {
	report := Report{
		Sources: []SourceRow{
			{Name: "mock", DisplayName: "Mock Source", Type: model.SourceTypeMock, Healthy: true, Message: "status 200", ResponseTime: 12 * time.Millisecond},
			{Name: "adzuna", DisplayName: "Adzuna", Type: model.SourceTypeAPI, Healthy: false, Message: "status 503"},
		},
		Runs: []model.DiscoveryRun{
			{CampaignID: "backend", Status: "completed", Found: 10, New: 4, StartedAt: time.Now()},
		},
		CheckedAt: time.Now(),
	}

	out := Render(report)

	for _, want := range []string{"mock", "adzuna", "healthy", "down", "backend", "status 503"} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q", want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("a very long display name", 10); got != "a very ..." {
		t.Errorf("got %q", got)
	}
	if len(truncate("abcdef", 3)) != 3 {
		t.Error("hard cut for tiny widths")
	}
}
