package adapter

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/jobscout/jobscout/internal/model"
)

// formatSalary renders whatever numeric bounds a source provides as a single
// human-readable string: min-only "X+", max-only "up to X", both "X–Y".
// Returns empty when no bound is known.
func formatSalary(min, max float64, currency string) string {
	cur := currency
	if cur != "" {
		cur = " " + cur
	}
	switch {
	case min > 0 && min == max:
		return fmt.Sprintf("%s%s", formatAmount(min), cur)
	case min > 0 && max > 0:
		return fmt.Sprintf("%s–%s%s", formatAmount(min), formatAmount(max), cur)
	case min > 0:
		return fmt.Sprintf("%s+%s", formatAmount(min), cur)
	case max > 0:
		return fmt.Sprintf("up to %s%s", formatAmount(max), cur)
	}
	return ""
}

// formatAmount drops the fractional part; salary APIs report whole units.
func formatAmount(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

// normalizeContract maps a source's contract-type vocabulary onto the closed
// set shared by all adapters. Unrecognized input yields empty.
func normalizeContract(raw string) model.ContractType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "full_time", "full-time", "fulltime", "full time", "permanent", "cdi":
		return model.ContractFullTime
	case "part_time", "part-time", "parttime", "part time":
		return model.ContractPartTime
	case "contract", "contractor", "fixed_term", "fixed-term", "cdd", "temp", "temporary":
		return model.ContractContract
	case "freelance", "self_employed", "self-employed":
		return model.ContractFreelance
	case "internship", "intern", "apprenticeship", "stage":
		return model.ContractInternship
	}
	return ""
}

// normalizeRemote classifies the remote arrangement from whatever signal the
// source exposes: an explicit value, free-text keywords in the location, or
// nothing (Unknown).
func normalizeRemote(raw string, location string) model.RemoteType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "remote", "full_remote", "fully_remote", "true", "yes":
		return model.RemoteTypeRemote
	case "hybrid", "partial", "flexible":
		return model.RemoteTypeHybrid
	case "onsite", "on-site", "on_site", "office", "false", "no":
		return model.RemoteTypeOnSite
	}

	locationLower := strings.ToLower(location)
	if isRemoteLocation(locationLower) {
		return model.RemoteTypeRemote
	}
	if strings.Contains(locationLower, "hybrid") {
		return model.RemoteTypeHybrid
	}
	if location != "" {
		return model.RemoteTypeOnSite
	}
	return model.RemoteTypeUnknown
}

// stableExternalID returns the source-native ID when present, otherwise a
// hash of the canonical URL, so re-polling the same posting always yields
// the same identifier.
func stableExternalID(nativeID, url string) string {
	if nativeID != "" {
		return nativeID
	}
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractText converts an HTML or HTML-encoded string to plain text.
// It first unescapes HTML entities (handles double-encoded descriptions;
// no-op on already-real HTML), strips all tags, then collapses whitespace.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, "")
	return strings.Join(strings.Fields(plain), " ")
}
