// Package dedup decides whether a discovered posting is already known.
// Matching runs in three tiers of decreasing confidence: source-native
// external ID, normalized posting URL, then a fuzzy company/title/location
// key. A batch is also checked against itself so two sources reporting the
// same posting in one run yield a single offer.
package dedup

import (
	"net/url"
	"sort"
	"strings"
	"unicode"
)

// keptParams are the query parameters that identify a posting. Everything
// else (utm_*, ref, session tokens) is tracking noise and is dropped before
// comparison.
var keptParams = map[string]bool{
	"id":     true,
	"jid":    true,
	"job":    true,
	"jobid":  true,
	"job_id": true,
	"gh_jid": true,
	"lever":  true,
	"slug":   true,
}

// NormalizeURL canonicalizes a posting URL so that superficial variations of
// the same link compare equal: scheme and host are lowercased, a leading
// "www." and any trailing slash are removed, the fragment is dropped, and
// only identifying query parameters survive, in sorted order. Unparseable
// input is returned lowercased and trimmed rather than failing the pipeline.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimRight(raw, "/"))
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")

	path := strings.TrimRight(u.Path, "/")

	var kept []string
	for key, vals := range u.Query() {
		if !keptParams[strings.ToLower(key)] {
			continue
		}
		for _, v := range vals {
			kept = append(kept, strings.ToLower(key)+"="+v)
		}
	}
	sort.Strings(kept)

	normalized := strings.ToLower(u.Scheme) + "://" + host + strings.ToLower(path)
	if len(kept) > 0 {
		normalized += "?" + strings.Join(kept, "&")
	}
	return normalized
}

// FuzzyKey builds the lowest-confidence match key from the fields every
// source reliably has. Case, punctuation, and spacing differences between
// sources collapse to the same key.
func FuzzyKey(company, title, location string) string {
	return collapse(company) + "|" + collapse(title) + "|" + collapse(location)
}

// collapse lowercases and strips everything that is not a letter or digit.
func collapse(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
