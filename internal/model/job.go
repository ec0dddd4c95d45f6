package model

import (
	"time"
)

// MaxRequirements caps the number of requirement strings extracted per job.
const MaxRequirements = 15

// SourceType classifies how an external source is queried.
type SourceType string

const (
	SourceTypeMock        SourceType = "mock"
	SourceTypeFeed        SourceType = "feed"
	SourceTypeAPI         SourceType = "api"
	SourceTypeSearchIndex SourceType = "search_index"
)

// RemoteType classifies the remote-work arrangement of a posting.
type RemoteType string

const (
	RemoteTypeRemote  RemoteType = "remote"
	RemoteTypeHybrid  RemoteType = "hybrid"
	RemoteTypeOnSite  RemoteType = "onsite"
	RemoteTypeUnknown RemoteType = "unknown"
)

// ContractType is the normalized contract vocabulary shared by all adapters.
type ContractType string

const (
	ContractFullTime   ContractType = "full-time"
	ContractPartTime   ContractType = "part-time"
	ContractContract   ContractType = "contract"
	ContractFreelance  ContractType = "freelance"
	ContractInternship ContractType = "internship"
)

// DiscoveredJob is the unified representation of a posting fetched from any
// source. It is transient adapter output: nothing here is persisted until the
// deduplication engine has resolved the batch.
//
// ExternalID must be stable across repeated polls of the same posting — the
// source-native ID where one exists, otherwise a hash of the URL.
type DiscoveredJob struct {
	ExternalID   string       // unique per source, stable across polls
	Title        string       // job title
	Company      string       // company name
	Location     string       // free-text location, may be empty
	Description  string       // free-text description
	Requirements []string     // extracted requirements, capped at MaxRequirements
	Salary       string       // human-readable salary string, may be empty
	ContractType ContractType // empty when the source exposes nothing usable
	RemoteType   RemoteType   // empty when unclassified
	URL          string       // canonical posting URL
	PostedAt     *time.Time   // nullable (not all sources provide this)
	ApplyEmail   string       // optional application email
	ApplyURL     string       // optional separate apply link
}

// OfferStatus is the lifecycle state of a persisted job offer.
type OfferStatus string

const (
	StatusDiscovered OfferStatus = "DISCOVERED"
	StatusAnalyzing  OfferStatus = "ANALYZING"
	StatusMatched    OfferStatus = "MATCHED"
	StatusRejected   OfferStatus = "REJECTED"
	StatusApplied    OfferStatus = "APPLIED"
	StatusExpired    OfferStatus = "EXPIRED"
	StatusError      OfferStatus = "ERROR"
)

// Terminal reports whether no further automatic transition leaves s.
func (s OfferStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusApplied, StatusExpired, StatusError:
		return true
	}
	return false
}

// Open reports whether the offer still awaits analysis or application and is
// therefore subject to the expiry sweep.
func (s OfferStatus) Open() bool {
	switch s {
	case StatusDiscovered, StatusAnalyzing, StatusMatched:
		return true
	}
	return false
}

// JobOffer is a persisted posting owned by exactly one campaign. The same
// external posting discovered under two campaigns yields two independent rows.
type JobOffer struct {
	ID           string
	CampaignID   string
	SourceID     int64
	Status       OfferStatus
	DiscoveredAt time.Time
	ExpiresAt    *time.Time
	MatchScore   *float64 // populated by the analysis stage
	MatchSummary string   // populated by the analysis stage

	DiscoveredJob
}

// JobSource is the persisted catalog row an adapter binds to at startup.
// Rows are created lazily on first use (upsert by name).
type JobSource struct {
	ID                int64
	Name              string // stable slug, join key to the adapter
	DisplayName       string
	Type              SourceType
	SupportsAutoApply bool
	Active            bool
}
