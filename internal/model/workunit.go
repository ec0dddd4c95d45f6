package model

import (
	"encoding/json"
	"time"
)

// WorkUnitType is the closed set of asynchronous pipeline steps.
type WorkUnitType string

const (
	UnitDiscover WorkUnitType = "discover"
	UnitAnalyze  WorkUnitType = "analyze"
	UnitGenerate WorkUnitType = "generate"
	UnitSend     WorkUnitType = "send"
	UnitSubmit   WorkUnitType = "submit"
)

// ValidUnitType reports whether t is a known work-unit type.
func ValidUnitType(t WorkUnitType) bool {
	switch t {
	case UnitDiscover, UnitAnalyze, UnitGenerate, UnitSend, UnitSubmit:
		return true
	}
	return false
}

// WorkUnit is a typed, queued instruction processed asynchronously by a
// registered handler. Every unit gets a durable log row regardless of which
// queue backend executes it.
type WorkUnit struct {
	ID       string          `json:"id"`
	Type     WorkUnitType    `json:"type"`
	Data     json.RawMessage `json:"data"`
	OwnerID  string          `json:"ownerId"`
	TestMode bool            `json:"testMode,omitempty"`
	Attempt  int             `json:"attempt,omitempty"`
}

// WorkUnitStatus is the durable-log lifecycle of a work unit.
type WorkUnitStatus string

const (
	UnitStatusQueued    WorkUnitStatus = "queued"
	UnitStatusActive    WorkUnitStatus = "active"
	UnitStatusCompleted WorkUnitStatus = "completed"
	UnitStatusFailed    WorkUnitStatus = "failed"
)

// WorkUnitRecord is the durable log row paired with every enqueued unit.
type WorkUnitRecord struct {
	ID         string
	Type       WorkUnitType
	Data       json.RawMessage
	OwnerID    string
	TestMode   bool
	Status     WorkUnitStatus
	Error      string
	EnqueuedAt time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// AnalyzeData is the payload of an "analyze" work unit.
type AnalyzeData struct {
	OfferID    string `json:"offerId"`
	CampaignID string `json:"campaignId"`
}

// GenerateData is the payload of a "generate" work unit.
type GenerateData struct {
	OfferID       string `json:"offerId"`
	CampaignID    string `json:"campaignId"`
	ApplicationID string `json:"applicationId"`
}
