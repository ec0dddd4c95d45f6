package scorer

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/match_analysis.md
var matchAnalysisPromptRaw string

// MatchAnalysisTemplate is the parsed prompt template for match analysis.
// Parsed once at package init; reused on every Score call.
var MatchAnalysisTemplate = template.Must(template.New("match_analysis").Parse(matchAnalysisPromptRaw))
