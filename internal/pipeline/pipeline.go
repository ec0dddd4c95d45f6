package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jobscout/jobscout/internal/model"
	"github.com/jobscout/jobscout/internal/queue"
)

// SourceCapabilities answers capability questions about bound sources.
type SourceCapabilities interface {
	SupportsAutoApply(sourceID int64) bool
}

// Pipeline implements the post-discovery work-unit handlers.
type Pipeline struct {
	offers       model.OfferStore
	campaigns    model.CampaignStore
	applications model.ApplicationStore
	sources      SourceCapabilities
	queue        queue.Queue
	scorer       model.Scorer
	logger       *slog.Logger
}

func New(offers model.OfferStore, campaigns model.CampaignStore, applications model.ApplicationStore,
	sources SourceCapabilities, q queue.Queue, scorer model.Scorer, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		offers:       offers,
		campaigns:    campaigns,
		applications: applications,
		sources:      sources,
		queue:        q,
		scorer:       scorer,
		logger:       logger,
	}
}

// Register binds every pipeline handler to its work-unit type.
func (p *Pipeline) Register(r *queue.Registry) error {
	for t, h := range map[model.WorkUnitType]queue.Handler{
		model.UnitAnalyze:  p.handleAnalyze,
		model.UnitGenerate: p.handleGenerate,
		model.UnitSend:     p.handleSend,
		model.UnitSubmit:   p.handleSubmit,
	} {
		if err := r.Register(t, h); err != nil {
			return err
		}
	}
	return nil
}

// handleAnalyze scores one offer against its campaign and classifies it as
// MATCHED or REJECTED. Matched offers on auto-apply campaigns move straight
// to APPLIED with an application record and a generate unit.
func (p *Pipeline) handleAnalyze(ctx context.Context, unit model.WorkUnit) error {
	var data model.AnalyzeData
	if err := json.Unmarshal(unit.Data, &data); err != nil {
		return fmt.Errorf("decoding analyze payload: %w", err)
	}

	offer, err := p.offers.GetOffer(ctx, data.OfferID)
	if err != nil {
		return fmt.Errorf("loading offer: %w", err)
	}
	if offer.Status.Terminal() {
		// Expired or errored between enqueue and execution; nothing to do.
		p.logger.Debug("skipping analysis of terminal offer",
			"offer", offer.ID, "status", offer.Status)
		return nil
	}

	campaign, err := p.campaigns.GetCampaign(ctx, data.CampaignID)
	if err != nil {
		return fmt.Errorf("loading campaign: %w", err)
	}

	if err := Transition(ctx, p.offers, offer, model.StatusAnalyzing); err != nil {
		return err
	}

	score, summary, err := p.scorer.Score(ctx, *campaign, *offer)
	if err != nil {
		if terr := Transition(ctx, p.offers, offer, model.StatusError); terr != nil {
			p.logger.Warn("moving offer to ERROR", "offer", offer.ID, "error", terr)
		}
		return fmt.Errorf("scoring offer %s: %w", offer.ID, err)
	}

	status := model.StatusRejected
	if score >= campaign.MatchThreshold {
		status = model.StatusMatched
	}
	if err := p.offers.SetMatchResult(ctx, offer.ID, score, summary, status); err != nil {
		return fmt.Errorf("recording match result: %w", err)
	}
	offer.Status = status
	p.logger.Info("offer analyzed",
		"offer", offer.ID, "score", score, "status", status)

	if status == model.StatusMatched && campaign.AutoApply && p.sources.SupportsAutoApply(offer.SourceID) {
		return p.autoApply(ctx, campaign, offer, unit.TestMode)
	}
	return nil
}

// autoApply records the application, moves the offer to APPLIED, and queues
// material generation with high priority.
func (p *Pipeline) autoApply(ctx context.Context, campaign *model.Campaign, offer *model.JobOffer, testMode bool) error {
	app := &model.Application{
		ID:         uuid.NewString(),
		OfferID:    offer.ID,
		CampaignID: campaign.ID,
	}
	if err := p.applications.CreateApplication(ctx, app); err != nil {
		return fmt.Errorf("recording application: %w", err)
	}
	if err := Transition(ctx, p.offers, offer, model.StatusApplied); err != nil {
		return err
	}

	data, err := json.Marshal(model.GenerateData{
		OfferID:       offer.ID,
		CampaignID:    campaign.ID,
		ApplicationID: app.ID,
	})
	if err != nil {
		return fmt.Errorf("encoding generate payload: %w", err)
	}
	unit := model.WorkUnit{
		ID:       uuid.NewString(),
		Type:     model.UnitGenerate,
		Data:     data,
		OwnerID:  campaign.ID,
		TestMode: testMode,
	}
	if err := p.queue.Enqueue(ctx, unit, queue.WithHighPriority()); err != nil {
		return fmt.Errorf("enqueueing generation: %w", err)
	}
	p.logger.Info("offer auto-applied", "offer", offer.ID, "application", app.ID)
	return nil
}

// handleGenerate is a placeholder for application-material generation. The
// unit completes so the durable log reflects the applied offer; actual
// document generation needs a configured provider.
func (p *Pipeline) handleGenerate(_ context.Context, unit model.WorkUnit) error {
	var data model.GenerateData
	if err := json.Unmarshal(unit.Data, &data); err != nil {
		return fmt.Errorf("decoding generate payload: %w", err)
	}
	p.logger.Info("material generation requested",
		"offer", data.OfferID, "application", data.ApplicationID, "test_mode", unit.TestMode)
	return nil
}

func (p *Pipeline) handleSend(_ context.Context, unit model.WorkUnit) error {
	p.logger.Info("send requested", "unit", unit.ID, "test_mode", unit.TestMode)
	return nil
}

func (p *Pipeline) handleSubmit(_ context.Context, unit model.WorkUnit) error {
	p.logger.Info("submit requested", "unit", unit.ID, "test_mode", unit.TestMode)
	return nil
}
