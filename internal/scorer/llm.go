package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/jobscout/jobscout/internal/model"
)

// LLMScorer implements model.Scorer using an LLM provider.
type LLMScorer struct {
	provider LLMProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

func NewLLMScorer(provider LLMProvider, tmpl *template.Template, logger *slog.Logger) *LLMScorer {
	return &LLMScorer{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// promptData flattens campaign and offer into the template's fields.
type promptData struct {
	Roles         string
	Locations     string
	RemoteOK      bool
	ContractTypes string
	SalaryMin     string

	Title        string
	Company      string
	Location     string
	ContractType string
	Salary       string
	Requirements string
	Description  string
}

// rawMatchResult is the JSON shape returned by the LLM (matches
// matchResultSchema).
type rawMatchResult struct {
	Score   float64 `json:"score"`
	Summary string  `json:"summary"`
}

func (s *LLMScorer) Score(ctx context.Context, campaign model.Campaign, offer model.JobOffer) (float64, string, error) {
	var promptBuf bytes.Buffer
	if err := s.tmpl.Execute(&promptBuf, buildPromptData(campaign, offer)); err != nil {
		return 0, "", fmt.Errorf("render prompt: %w", err)
	}

	raw, err := s.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return 0, "", fmt.Errorf("llm complete: %w", err)
	}

	var result rawMatchResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return 0, "", fmt.Errorf("unmarshal match result JSON: %w", err)
	}

	score := result.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	s.logger.Debug("llm scored offer", "offer", offer.ID, "score", score)
	return score, result.Summary, nil
}

func buildPromptData(campaign model.Campaign, offer model.JobOffer) promptData {
	contracts := make([]string, 0, len(campaign.ContractTypes))
	for _, c := range campaign.ContractTypes {
		contracts = append(contracts, string(c))
	}

	salaryMin := "not specified"
	if campaign.SalaryMin != nil {
		salaryMin = fmt.Sprintf("%d %s", *campaign.SalaryMin, campaign.SalaryCurrency)
	}

	return promptData{
		Roles:         orAny(strings.Join(campaign.TargetRoles, ", ")),
		Locations:     orAny(strings.Join(campaign.TargetLocations, ", ")),
		RemoteOK:      campaign.RemoteOK,
		ContractTypes: orAny(strings.Join(contracts, ", ")),
		SalaryMin:     salaryMin,

		Title:        offer.Title,
		Company:      offer.Company,
		Location:     offer.Location,
		ContractType: string(offer.ContractType),
		Salary:       offer.Salary,
		Requirements: strings.Join(offer.Requirements, "\n"),
		Description:  offer.Description,
	}
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}
