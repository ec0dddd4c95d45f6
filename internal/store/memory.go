package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobscout/jobscout/internal/model"
)

// MemoryStore is an in-memory implementation of the model persistence
// interfaces. It backs one-shot dry runs, where nothing should touch disk,
// and the fakes used across package tests.
type MemoryStore struct {
	mu           sync.Mutex
	campaigns    map[string]model.Campaign
	sources      map[string]model.JobSource
	nextSourceID int64
	offers       map[string]*model.JobOffer
	runs         []model.DiscoveryRun
	units        map[string]*model.WorkUnitRecord
	applications []model.Application
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		campaigns: make(map[string]model.Campaign),
		sources:   make(map[string]model.JobSource),
		offers:    make(map[string]*model.JobOffer),
		units:     make(map[string]*model.WorkUnitRecord),
	}
}

func (s *MemoryStore) SyncCampaign(_ context.Context, c model.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.campaigns[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCampaign(_ context.Context, id string) (*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("campaign %s not found", id)
	}
	return &c, nil
}

func (s *MemoryStore) ListEnabledCampaigns(_ context.Context) ([]model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Campaign
	for _, c := range s.campaigns {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListCampaigns(_ context.Context) ([]model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		out = append(out, c)
	}
	return out, nil
}

func (s *MemoryStore) EnsureSource(_ context.Context, src model.JobSource) (*model.JobSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sources[src.Name]; ok {
		return &existing, nil
	}
	s.nextSourceID++
	src.ID = s.nextSourceID
	s.sources[src.Name] = src
	return &src, nil
}

func (s *MemoryStore) ListSources(_ context.Context) ([]model.JobSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.JobSource
	for _, src := range s.sources {
		out = append(out, src)
	}
	return out, nil
}

func (s *MemoryStore) CreateOffer(_ context.Context, offer *model.JobOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offer.ID == "" {
		offer.ID = uuid.NewString()
	}
	if offer.Status == "" {
		offer.Status = model.StatusDiscovered
	}
	if offer.DiscoveredAt.IsZero() {
		offer.DiscoveredAt = time.Now().UTC()
	}
	cp := *offer
	s.offers[offer.ID] = &cp
	return nil
}

func (s *MemoryStore) GetOffer(_ context.Context, id string) (*model.JobOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	if !ok {
		return nil, fmt.Errorf("offer %s not found", id)
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) ListOffersByCampaign(_ context.Context, campaignID string) ([]model.JobOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.JobOffer
	for _, o := range s.offers {
		if o.CampaignID == campaignID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateOfferStatus(_ context.Context, id string, status model.OfferStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	if !ok {
		return fmt.Errorf("offer %s not found", id)
	}
	o.Status = status
	return nil
}

func (s *MemoryStore) SetMatchResult(_ context.Context, id string, score float64, summary string, status model.OfferStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	if !ok {
		return fmt.Errorf("offer %s not found", id)
	}
	o.MatchScore = &score
	o.MatchSummary = summary
	o.Status = status
	return nil
}

func (s *MemoryStore) ExpireOpenOffers(_ context.Context, campaignID string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var swept int
	for _, o := range s.offers {
		if o.CampaignID != campaignID || !o.Status.Open() {
			continue
		}
		if o.PostedAt == nil || !o.PostedAt.Before(cutoff) {
			continue
		}
		o.Status = model.StatusExpired
		if o.ExpiresAt == nil {
			t := now
			o.ExpiresAt = &t
		}
		swept++
	}
	return swept, nil
}

func (s *MemoryStore) CreateRun(_ context.Context, run *model.DiscoveryRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	s.runs = append(s.runs, *run)
	return nil
}

func (s *MemoryStore) ListRunsByCampaign(_ context.Context, campaignID string, limit int) ([]model.DiscoveryRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.DiscoveryRun
	for i := len(s.runs) - 1; i >= 0; i-- {
		if s.runs[i].CampaignID != campaignID {
			continue
		}
		out = append(out, s.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateUnit(_ context.Context, rec *model.WorkUnitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.EnqueuedAt.IsZero() {
		rec.EnqueuedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = model.UnitStatusQueued
	}
	cp := *rec
	s.units[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) MarkUnitActive(_ context.Context, id string) error {
	return s.setUnit(id, model.UnitStatusActive, "")
}

func (s *MemoryStore) MarkUnitCompleted(_ context.Context, id string) error {
	return s.setUnit(id, model.UnitStatusCompleted, "")
}

func (s *MemoryStore) MarkUnitFailed(_ context.Context, id string, errMsg string) error {
	return s.setUnit(id, model.UnitStatusFailed, errMsg)
}

func (s *MemoryStore) setUnit(id string, status model.WorkUnitStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	if !ok {
		return fmt.Errorf("work unit %s not found", id)
	}
	now := time.Now().UTC()
	u.Status = status
	u.Error = errMsg
	switch status {
	case model.UnitStatusActive:
		u.StartedAt = &now
	case model.UnitStatusCompleted, model.UnitStatusFailed:
		u.FinishedAt = &now
	}
	return nil
}

func (s *MemoryStore) CountUnitsByStatus(_ context.Context) (map[model.WorkUnitStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[model.WorkUnitStatus]int)
	for _, u := range s.units {
		counts[u.Status]++
	}
	return counts, nil
}

func (s *MemoryStore) CleanupUnits(_ context.Context, olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var removed int
	for id, u := range s.units {
		if u.Status != model.UnitStatusCompleted && u.Status != model.UnitStatusFailed {
			continue
		}
		if u.FinishedAt != nil && u.FinishedAt.Before(cutoff) {
			delete(s.units, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) CreateApplication(_ context.Context, app *model.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	s.applications = append(s.applications, *app)
	return nil
}

// Applications returns a copy of the recorded applications, newest last.
func (s *MemoryStore) Applications() []model.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Application, len(s.applications))
	copy(out, s.applications)
	return out
}
