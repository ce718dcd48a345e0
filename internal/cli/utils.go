// Package cli provides CLI utilities for TalentMatch.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/talentmatch/talentmatch/internal/models"
	"github.com/talentmatch/talentmatch/internal/profile"
)

// MatchOutputFormat is the format for match result output.
type MatchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText MatchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON MatchOutputFormat = "json"
)

// WriteMatchResults writes match results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteMatchResults(w io.Writer, response *models.MatchResponse, format MatchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeMatchResultsText(w, response)
		return nil
	}
}

func writeMatchResultsText(w io.Writer, response *models.MatchResponse) {
	fmt.Fprintf(w, "\nFound %d matches in %dms (index generation %d)\n\n",
		response.Total, response.QueryTime, response.Generation)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
}

func writeOneResult(w io.Writer, result *models.MatchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.2f\n", result.Rank, result.Score)
	fmt.Fprintf(w, "ID: %s\n", result.EntityID)
	b := result.Breakdown
	fmt.Fprintf(w, "Skills: %.2f | Experience: %.2f | Education: %.2f | Similarity: %.2f\n",
		b.SkillsScore, b.ExperienceScore, b.EducationScore, b.BaseSimilarity)
	if len(b.MatchedSkills) > 0 {
		fmt.Fprintf(w, "Matched skills: %s\n", strings.Join(b.MatchedSkills, ", "))
	}
	if len(b.MissingSkills) > 0 {
		fmt.Fprintf(w, "Missing skills: %s\n", strings.Join(b.MissingSkills, ", "))
	}
	if result.Explanation != "" {
		fmt.Fprintf(w, "\n%s\n", Truncate(result.Explanation, 200))
	}
	fmt.Fprintln(w)
}

// WriteSummary writes a candidate CV summary with recommendations in
// human-readable form. Summary sentences are clipped per word so a run-on
// CV line keeps the output scannable.
func WriteSummary(w io.Writer, candidateID string, s *profile.Summary, recommendations []string) {
	fmt.Fprintf(w, "\nSummary for %s (%s, %d of %d sentences)\n\n",
		candidateID, s.Method, s.SummaryLength, s.OriginalLength)
	for _, sentence := range s.Sentences {
		fmt.Fprintf(w, "  - %s\n", TruncateWords(sentence, 40))
	}
	if len(s.Keywords) > 0 {
		fmt.Fprintf(w, "\nKeywords: %s\n", strings.Join(s.Keywords, ", "))
	}
	if len(recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, rec := range recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}
}

// PrintMatchResults prints match results to stdout in text format.
func PrintMatchResults(response *models.MatchResponse) {
	_ = WriteMatchResults(os.Stdout, response, OutputText)
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
