package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jobscout/jobscout/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLog records work-unit log calls for assertions.
type fakeLog struct {
	mu      sync.Mutex
	records map[string]*model.WorkUnitRecord
	failErr error // returned from CreateUnit when set
}

func newFakeLog() *fakeLog {
	return &fakeLog{records: make(map[string]*model.WorkUnitRecord)}
}

func (f *fakeLog) CreateUnit(_ context.Context, rec *model.WorkUnitRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	if rec.Status == "" {
		rec.Status = model.UnitStatusQueued
	}
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeLog) setStatus(id string, status model.WorkUnitStatus, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return errors.New("unit not found")
	}
	rec.Status = status
	rec.Error = errMsg
	return nil
}

func (f *fakeLog) MarkUnitActive(_ context.Context, id string) error {
	return f.setStatus(id, model.UnitStatusActive, "")
}

func (f *fakeLog) MarkUnitCompleted(_ context.Context, id string) error {
	return f.setStatus(id, model.UnitStatusCompleted, "")
}

func (f *fakeLog) MarkUnitFailed(_ context.Context, id string, errMsg string) error {
	return f.setStatus(id, model.UnitStatusFailed, errMsg)
}

func (f *fakeLog) CountUnitsByStatus(_ context.Context) (map[model.WorkUnitStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[model.WorkUnitStatus]int)
	for _, rec := range f.records {
		counts[rec.Status]++
	}
	return counts, nil
}

func (f *fakeLog) CleanupUnits(_ context.Context, _ time.Duration) (int, error) {
	return 0, nil
}

func (f *fakeLog) status(id string) model.WorkUnitStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return ""
	}
	return rec.Status
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, model.WorkUnit) error { return nil }

	if err := r.Register(model.UnitAnalyze, noop); err != nil {
		t.Fatalf("registering: %v", err)
	}
	if err := r.Register(model.UnitAnalyze, noop); err == nil {
		t.Error("double registration must fail")
	}
	if err := r.Register("bogus", noop); err == nil {
		t.Error("unknown type must fail")
	}
	if err := r.Register(model.UnitGenerate, nil); err == nil {
		t.Error("nil handler must fail")
	}

	if _, err := r.Resolve(model.UnitAnalyze); err != nil {
		t.Errorf("resolving registered type: %v", err)
	}
	if _, err := r.Resolve(model.UnitSubmit); err == nil {
		t.Error("resolving unregistered type must fail")
	}
}

func TestValidateUnit(t *testing.T) {
	if err := validateUnit(model.WorkUnit{Type: model.UnitAnalyze}); err == nil {
		t.Error("unit without ID must be rejected")
	}
	if err := validateUnit(model.WorkUnit{ID: "u1", Type: "bogus"}); err == nil {
		t.Error("unit with unknown type must be rejected")
	}
	if err := validateUnit(model.WorkUnit{ID: "u1", Type: model.UnitAnalyze}); err != nil {
		t.Errorf("valid unit rejected: %v", err)
	}
}
