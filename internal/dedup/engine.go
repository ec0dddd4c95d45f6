package dedup

import (
	"fmt"
	"log/slog"

	"github.com/jobscout/jobscout/internal/model"
)

// MatchType names the tier that identified a duplicate.
type MatchType string

const (
	MatchExternalID MatchType = "external_id"
	MatchURL        MatchType = "url"
	MatchFuzzy      MatchType = "fuzzy"
)

// Candidate is one discovered posting entering deduplication, tagged with
// the source that produced it.
type Candidate struct {
	SourceID   int64
	SourceName string
	Job        model.DiscoveredJob
}

// Duplicate records one rejected candidate. ExistingID carries the offer it
// collided with; for a collision within the same batch it carries the
// external ID of the candidate that was kept instead.
type Duplicate struct {
	Candidate   Candidate
	ExistingID  string
	MatchType   MatchType
	WithinBatch bool
}

// Result is the outcome of deduplicating one batch.
type Result struct {
	Unique     []Candidate
	Duplicates []Duplicate
	Stats      Stats
}

// Stats summarizes a deduplication pass for run reporting.
type Stats struct {
	Total       int
	Unique      int
	Duplicates  int
	WithinBatch int
	ByMatchType map[MatchType]int
}

// indexEntry ties a match key back to whatever owns it: a stored offer or an
// earlier candidate in the same batch.
type indexEntry struct {
	id          string
	withinBatch bool
}

// Index holds the match keys of a campaign's existing offers. Build one per
// discovery run from the campaign's stored offers, then feed batches through
// Deduplicate. An Index is not safe for concurrent use.
type Index struct {
	byExternal map[string]indexEntry // source name + external ID
	byURL      map[string]indexEntry
	byFuzzy    map[string]indexEntry
}

// NewIndex builds the lookup index from a campaign's existing offers.
func NewIndex(offers []model.JobOffer) *Index {
	ix := &Index{
		byExternal: make(map[string]indexEntry, len(offers)),
		byURL:      make(map[string]indexEntry, len(offers)),
		byFuzzy:    make(map[string]indexEntry, len(offers)),
	}
	for _, offer := range offers {
		entry := indexEntry{id: offer.ID}
		if key := externalKey(offer.SourceID, offer.ExternalID); key != "" {
			ix.byExternal[key] = entry
		}
		if key := NormalizeURL(offer.URL); key != "" {
			ix.byURL[key] = entry
		}
		ix.byFuzzy[FuzzyKey(offer.Company, offer.Title, offer.Location)] = entry
	}
	return ix
}

func externalKey(sourceID int64, externalID string) string {
	if externalID == "" {
		return ""
	}
	return fmt.Sprintf("%d:%s", sourceID, externalID)
}

// match runs the three tiers in confidence order against one candidate.
func (ix *Index) match(c Candidate) (indexEntry, MatchType, bool) {
	if key := externalKey(c.SourceID, c.Job.ExternalID); key != "" {
		if entry, ok := ix.byExternal[key]; ok {
			return entry, MatchExternalID, true
		}
	}
	if key := NormalizeURL(c.Job.URL); key != "" {
		if entry, ok := ix.byURL[key]; ok {
			return entry, MatchURL, true
		}
	}
	if entry, ok := ix.byFuzzy[FuzzyKey(c.Job.Company, c.Job.Title, c.Job.Location)]; ok {
		return entry, MatchFuzzy, true
	}
	return indexEntry{}, "", false
}

// add registers an accepted candidate so later candidates in the same batch
// collide with it.
func (ix *Index) add(c Candidate) {
	entry := indexEntry{id: c.Job.ExternalID, withinBatch: true}
	if key := externalKey(c.SourceID, c.Job.ExternalID); key != "" {
		ix.byExternal[key] = entry
	}
	if key := NormalizeURL(c.Job.URL); key != "" {
		ix.byURL[key] = entry
	}
	ix.byFuzzy[FuzzyKey(c.Job.Company, c.Job.Title, c.Job.Location)] = entry
}

// Engine runs deduplication passes and logs their outcome.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Deduplicate classifies every candidate in the batch against the index and
// against candidates accepted earlier in the same batch. Duplicates are
// labeled with the tier that caught them. Accepted candidates are added to
// the index, so the index reflects the batch afterwards.
func (e *Engine) Deduplicate(ix *Index, batch []Candidate) Result {
	result := Result{
		Stats: Stats{Total: len(batch), ByMatchType: make(map[MatchType]int)},
	}

	for _, c := range batch {
		entry, matchType, found := ix.match(c)
		if !found {
			ix.add(c)
			result.Unique = append(result.Unique, c)
			continue
		}

		result.Duplicates = append(result.Duplicates, Duplicate{
			Candidate:   c,
			ExistingID:  entry.id,
			MatchType:   matchType,
			WithinBatch: entry.withinBatch,
		})
		result.Stats.ByMatchType[matchType]++
		if entry.withinBatch {
			result.Stats.WithinBatch++
		}
	}

	result.Stats.Unique = len(result.Unique)
	result.Stats.Duplicates = len(result.Duplicates)

	e.logger.Debug("deduplication pass complete",
		"total", result.Stats.Total,
		"unique", result.Stats.Unique,
		"duplicates", result.Stats.Duplicates,
		"within_batch", result.Stats.WithinBatch,
	)
	return result
}
