// Package scorer rates offers against their campaign. The heuristic scorer
// is deterministic and always available; the LLM scorer is used when a
// provider is configured.
package scorer

import (
	"context"
	"fmt"
	"strings"

	"github.com/jobscout/jobscout/internal/model"
)

// Component weights. They sum to 1 so the score stays in [0,1].
const (
	weightRole     = 0.45
	weightLocation = 0.25
	weightContract = 0.15
	weightSalary   = 0.15
)

// Heuristic scores offers from campaign criteria alone, with no external
// calls. Criteria a campaign leaves unset award their full weight: an
// unconstrained dimension cannot count against an offer.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Score(_ context.Context, campaign model.Campaign, offer model.JobOffer) (float64, string, error) {
	var score float64
	var parts []string

	if roleMatches(campaign.TargetRoles, offer.Title) {
		score += weightRole
		parts = append(parts, "role matches")
	} else {
		parts = append(parts, "role differs from targets")
	}

	if locationMatches(campaign, offer) {
		score += weightLocation
		parts = append(parts, "location fits")
	} else {
		parts = append(parts, "location outside targets")
	}

	if contractMatches(campaign.ContractTypes, offer.ContractType) {
		score += weightContract
		parts = append(parts, "contract acceptable")
	} else {
		parts = append(parts, "contract type excluded")
	}

	if salaryAcceptable(campaign, offer) {
		score += weightSalary
		parts = append(parts, "salary acceptable")
	} else {
		parts = append(parts, "salary below minimum")
	}

	return score, fmt.Sprintf("heuristic: %s", strings.Join(parts, "; ")), nil
}

func roleMatches(targets []string, title string) bool {
	if len(targets) == 0 {
		return true
	}
	titleLower := strings.ToLower(title)
	for _, target := range targets {
		t := strings.ToLower(strings.TrimSpace(target))
		if t == "" {
			continue
		}
		if strings.Contains(titleLower, t) || strings.Contains(t, titleLower) {
			return true
		}
	}
	return false
}

func locationMatches(campaign model.Campaign, offer model.JobOffer) bool {
	if campaign.RemoteOK && offer.RemoteType == model.RemoteTypeRemote {
		return true
	}
	if len(campaign.TargetLocations) == 0 {
		return true
	}
	locationLower := strings.ToLower(offer.Location)
	for _, target := range campaign.TargetLocations {
		if strings.Contains(locationLower, strings.ToLower(target)) {
			return true
		}
	}
	return false
}

func contractMatches(wanted []model.ContractType, got model.ContractType) bool {
	if len(wanted) == 0 || got == "" {
		return true
	}
	for _, w := range wanted {
		if w == got {
			return true
		}
	}
	return false
}

// salaryAcceptable passes offers that state no salary; the floor can only be
// enforced against an actual figure.
func salaryAcceptable(campaign model.Campaign, offer model.JobOffer) bool {
	if campaign.SalaryMin == nil || offer.Salary == "" {
		return true
	}
	// Salary strings are normalized by the adapters ("60000–80000 EUR",
	// "90000+ USD", "up to 70000 EUR"); compare against the largest figure.
	max := largestFigure(offer.Salary)
	if max == 0 {
		return true
	}
	return max >= *campaign.SalaryMin
}

func largestFigure(salary string) int {
	var best, cur int
	inNumber := false
	for _, r := range salary {
		if r >= '0' && r <= '9' {
			cur = cur*10 + int(r-'0')
			inNumber = true
			continue
		}
		if inNumber && cur > best {
			best = cur
		}
		cur = 0
		inNumber = false
	}
	if inNumber && cur > best {
		best = cur
	}
	return best
}
