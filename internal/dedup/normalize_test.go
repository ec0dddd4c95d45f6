package dedup

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"lowercases host and strips www",
			"https://WWW.Example.COM/Jobs/123",
			"https://example.com/jobs/123",
		},
		{
			"strips trailing slash",
			"https://example.com/jobs/123/",
			"https://example.com/jobs/123",
		},
		{
			"drops tracking params keeps id",
			"https://example.com/jobs?id=42&utm_source=feed&ref=x",
			"https://example.com/jobs?id=42",
		},
		{
			"drops fragment",
			"https://example.com/jobs/123#apply",
			"https://example.com/jobs/123",
		},
		{
			"empty input",
			"",
			"",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeURL(tc.in); got != tc.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeURL_ParamOrderIndependent(t *testing.T) {
	a := NormalizeURL("https://example.com/jobs?job_id=9&slug=backend")
	b := NormalizeURL("https://example.com/jobs?slug=backend&job_id=9")
	if a != b {
		t.Errorf("parameter order must not matter: %q vs %q", a, b)
	}
}

func TestFuzzyKey_IgnoresCaseAndPunctuation(t *testing.T) {
	a := FuzzyKey("Nimbus Labs, Inc.", "Senior Backend-Engineer", "Berlin, Germany")
	b := FuzzyKey("nimbus labs inc", "senior backend engineer", "berlin germany")
	if a != b {
		t.Errorf("keys differ:\n%q\n%q", a, b)
	}
}

func TestFuzzyKey_FieldBoundariesPreserved(t *testing.T) {
	a := FuzzyKey("Acme", "Go Engineer", "Berlin")
	b := FuzzyKey("Acme Go", "Engineer", "Berlin")
	if a == b {
		t.Error("field contents must not bleed across the separator")
	}
}
