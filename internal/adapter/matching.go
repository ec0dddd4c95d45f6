package adapter

import (
	"regexp"
	"strings"

	"github.com/jobscout/jobscout/internal/model"
)

// roleSynonyms widens role matching beyond literal substrings: a campaign
// looking for "frontend" should still match a "React Developer" posting, and
// one looking for "react" should still match a "Frontend Engineer" posting.
var roleSynonyms = map[string][]string{
	"frontend":  {"react", "vue", "angular", "ui"},
	"backend":   {"golang", "node", "java", "python", "api"},
	"fullstack": {"full stack", "full-stack"},
	"devops":    {"sre", "platform", "infrastructure", "kubernetes"},
	"mobile":    {"ios", "android", "flutter", "react native"},
	"data":      {"analytics", "etl", "machine learning", "ml"},
}

// remoteKeywords are location strings that satisfy a remote-tolerant campaign
// regardless of the literal location text.
var remoteKeywords = []string{"remote", "anywhere", "worldwide", "wfh"}

// matchesRole reports whether title matches any target role. Matching is
// case-insensitive substring containment in both directions, widened by the
// synonym table. An empty role list matches everything.
func matchesRole(title string, roles []string) bool {
	if len(roles) == 0 {
		return true
	}

	titleLower := strings.ToLower(title)
	for _, role := range roles {
		roleLower := strings.ToLower(role)
		if strings.Contains(titleLower, roleLower) || strings.Contains(roleLower, titleLower) {
			return true
		}
		if synonymMatch(roleLower, titleLower) || synonymMatch(titleLower, roleLower) {
			return true
		}
	}
	return false
}

// synonymMatch reports whether a names a synonym group whose entries appear
// in b. Called in both orientations, it makes the table symmetric.
func synonymMatch(a, b string) bool {
	for key, synonyms := range roleSynonyms {
		if !strings.Contains(a, key) {
			continue
		}
		for _, syn := range synonyms {
			if strings.Contains(b, syn) {
				return true
			}
		}
	}
	return false
}

// isRemoteLocation reports whether the location text signals a remote role.
func isRemoteLocation(location string) bool {
	locationLower := strings.ToLower(location)
	for _, kw := range remoteKeywords {
		if strings.Contains(locationLower, kw) {
			return true
		}
	}
	return false
}

// matchesLocation reports whether a posting's location satisfies the
// criteria. A remote posting satisfies a remote-tolerant campaign regardless
// of the literal text; otherwise case-insensitive substring matching against
// the target locations applies. An empty target list matches everything.
func matchesLocation(location string, criteria model.SearchCriteria) bool {
	if criteria.RemoteOK && isRemoteLocation(location) {
		return true
	}
	if len(criteria.Locations) == 0 {
		return true
	}

	locationLower := strings.ToLower(location)
	for _, target := range criteria.Locations {
		if strings.Contains(locationLower, strings.ToLower(target)) {
			return true
		}
	}
	return false
}

// meetsSalaryFloor reports whether a posting with the given numeric salary
// bounds clears the campaign's floor. Postings without salary data pass:
// absence of evidence is not grounds for exclusion.
func meetsSalaryFloor(criteria model.SearchCriteria, salaryMin, salaryMax float64) bool {
	if criteria.SalaryMin == nil {
		return true
	}
	if salaryMin == 0 && salaryMax == 0 {
		return true
	}
	floor := float64(*criteria.SalaryMin)
	if salaryMax > 0 {
		return salaryMax >= floor
	}
	return salaryMin >= floor
}

// requirementSectionRe captures the bullet block following a structured
// "Requirements:"/"Qualifications:"/"Skills:" heading.
var requirementSectionRe = regexp.MustCompile(`(?is)(?:requirements|qualifications|skills)\s*:?\s*\n(.*?)(?:\n\s*\n|\z)`)

// bulletRe matches one bullet line within a requirements section.
var bulletRe = regexp.MustCompile(`(?m)^\s*[-*•]\s*(.+?)\s*$`)

// techKeywords is the fallback vocabulary scanned when a description has no
// structured requirements section.
var techKeywords = []string{
	"go", "golang", "python", "java", "javascript", "typescript", "rust",
	"react", "vue", "angular", "node.js", "django", "rails", "spring",
	"postgresql", "mysql", "mongodb", "redis", "elasticsearch",
	"docker", "kubernetes", "terraform", "aws", "gcp", "azure",
	"graphql", "grpc", "rest", "kafka", "ci/cd", "git",
}

// extractRequirements pulls requirement strings out of a free-text
// description: first the bullets of a structured section, then a
// technology-keyword scan as fallback. Output is capped at
// model.MaxRequirements entries.
func extractRequirements(description string) []string {
	if description == "" {
		return nil
	}

	var reqs []string
	if m := requirementSectionRe.FindStringSubmatch(description); m != nil {
		for _, bullet := range bulletRe.FindAllStringSubmatch(m[1], -1) {
			reqs = append(reqs, bullet[1])
			if len(reqs) == model.MaxRequirements {
				return reqs
			}
		}
	}
	if len(reqs) > 0 {
		return reqs
	}

	// No structured section, fall back to keyword scanning.
	descLower := strings.ToLower(description)
	for _, kw := range techKeywords {
		if containsWord(descLower, kw) {
			reqs = append(reqs, kw)
			if len(reqs) == model.MaxRequirements {
				break
			}
		}
	}
	return reqs
}

// containsWord checks for kw in text at word boundaries, so "go" does not
// match inside "mongodb".
func containsWord(text, kw string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isAlnum(text[start-1])
		afterOK := end == len(text) || !isAlnum(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
