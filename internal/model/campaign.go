package model

import "time"

// Campaign is a user's configured job search. It scopes discovery,
// deduplication, and the match threshold applied during analysis.
type Campaign struct {
	ID              string
	Name            string
	TargetRoles     []string
	TargetLocations []string
	ContractTypes   []ContractType
	RemoteOK        bool
	SalaryMin       *int
	SalaryMax       *int
	SalaryCurrency  string
	SourceNames     []string // explicit source selection; empty = all active
	MatchThreshold  float64  // minimum score for MATCHED, 0..1
	AutoApply       bool
	Enabled         bool
	CreatedAt       time.Time
}

// SearchCriteria is derived from a campaign's configuration at the start of
// every discovery run. It is never persisted.
type SearchCriteria struct {
	CampaignID     string
	Roles          []string
	Locations      []string
	ContractTypes  []ContractType
	RemoteOK       bool
	SalaryMin      *int
	SalaryMax      *int
	SalaryCurrency string
}

// CriteriaFor builds fresh search criteria from the campaign configuration.
func CriteriaFor(c Campaign) SearchCriteria {
	return SearchCriteria{
		CampaignID:     c.ID,
		Roles:          c.TargetRoles,
		Locations:      c.TargetLocations,
		ContractTypes:  c.ContractTypes,
		RemoteOK:       c.RemoteOK,
		SalaryMin:      c.SalaryMin,
		SalaryMax:      c.SalaryMax,
		SalaryCurrency: c.SalaryCurrency,
	}
}
