package dedup

import "time"

// DefaultMaxAge is how long a posting is considered live after its publish
// date when the source does not state an expiry.
const DefaultMaxAge = 30 * 24 * time.Hour

// IsStale reports whether a posting's publish date is older than maxAge.
// Postings without a publish date are never considered stale; sources that
// omit the date give no signal to age them out on.
func IsStale(postedAt *time.Time, maxAge time.Duration, now time.Time) bool {
	if postedAt == nil {
		return false
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return now.Sub(*postedAt) > maxAge
}

// ExpiryFor derives the expiry timestamp stored on a new offer. Nil when the
// posting has no publish date.
func ExpiryFor(postedAt *time.Time, maxAge time.Duration) *time.Time {
	if postedAt == nil {
		return nil
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	expires := postedAt.Add(maxAge)
	return &expires
}
