package adapter

import (
	"testing"

	"github.com/jobscout/jobscout/internal/model"
)

func TestMatchesRole(t *testing.T) {
	tests := []struct {
		name  string
		title string
		roles []string
		want  bool
	}{
		{"exact substring", "Senior Backend Engineer", []string{"backend engineer"}, true},
		{"reverse substring", "Go Dev", []string{"Senior Go Dev"}, true},
		{"synonym match", "React Developer", []string{"frontend"}, true},
		{"synonym match reversed", "Frontend Engineer", []string{"react"}, true},
		{"synonym match reversed devops", "DevOps Engineer", []string{"kubernetes"}, true},
		{"no match", "Accountant", []string{"software engineer"}, false},
		{"empty roles match all", "Anything At All", nil, true},
		{"case insensitive", "DEVOPS ENGINEER", []string{"devops"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := matchesRole(tc.title, tc.roles); got != tc.want {
				t.Errorf("matchesRole(%q, %v) = %v, want %v", tc.title, tc.roles, got, tc.want)
			}
		})
	}
}

func TestMatchesLocation(t *testing.T) {
	tests := []struct {
		name     string
		location string
		criteria model.SearchCriteria
		want     bool
	}{
		{
			"target city matches",
			"Berlin, Germany",
			model.SearchCriteria{Locations: []string{"berlin"}},
			true,
		},
		{
			"other city rejected",
			"Paris, France",
			model.SearchCriteria{Locations: []string{"berlin"}},
			false,
		},
		{
			"remote satisfies remote-ok campaign",
			"Remote, worldwide",
			model.SearchCriteria{Locations: []string{"berlin"}, RemoteOK: true},
			true,
		},
		{
			"remote rejected without remote-ok",
			"Remote",
			model.SearchCriteria{Locations: []string{"berlin"}},
			false,
		},
		{
			"no targets matches everything",
			"Anywhere",
			model.SearchCriteria{},
			true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := matchesLocation(tc.location, tc.criteria); got != tc.want {
				t.Errorf("matchesLocation(%q) = %v, want %v", tc.location, got, tc.want)
			}
		})
	}
}

func TestExtractRequirements_StructuredSection(t *testing.T) {
	description := `We build infrastructure tooling.

Requirements:
- 5+ years with Go
- Experience with PostgreSQL
- Comfortable on call

About us: a great team.`

	got := extractRequirements(description)
	want := []string{"5+ years with Go", "Experience with PostgreSQL", "Comfortable on call"}
	if len(got) != len(want) {
		t.Fatalf("got %d requirements %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("requirement %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractRequirements_KeywordFallback(t *testing.T) {
	description := "Looking for someone who knows Go, Kubernetes and PostgreSQL. Docker is a plus."

	got := extractRequirements(description)
	if len(got) == 0 {
		t.Fatal("expected keyword fallback to find requirements")
	}
	found := make(map[string]bool)
	for _, r := range got {
		found[r] = true
	}
	for _, kw := range []string{"go", "kubernetes", "postgresql", "docker"} {
		if !found[kw] {
			t.Errorf("expected keyword %q in %v", kw, got)
		}
	}
}

func TestExtractRequirements_CapsAtLimit(t *testing.T) {
	description := "Requirements:\n"
	for i := 0; i < model.MaxRequirements+10; i++ {
		description += "- requirement line\n"
	}

	got := extractRequirements(description)
	if len(got) > model.MaxRequirements {
		t.Errorf("got %d requirements, cap is %d", len(got), model.MaxRequirements)
	}
}

func TestContainsWord(t *testing.T) {
	if !containsWord("we use go and kubernetes", "go") {
		t.Error("expected word match for 'go'")
	}
	if containsWord("mongodb experience", "go") {
		t.Error("'go' must not match inside 'mongodb'")
	}
}
