package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/talentmatch/talentmatch/internal/models"
	"github.com/talentmatch/talentmatch/internal/profile"
)

func sampleResponse() *models.MatchResponse {
	return &models.MatchResponse{
		Total:      1,
		Generation: 3,
		QueryTime:  42,
		Results: []*models.MatchResult{
			{
				EntityID: "cv-1",
				Score:    87.5,
				Rank:     1,
				Breakdown: models.MatchBreakdown{
					SkillsScore:     1.0,
					ExperienceScore: 0.5,
					EducationScore:  1.0,
					BaseSimilarity:  0.8,
					MatchedSkills:   []string{"go", "sql"},
					MissingSkills:   []string{"kubernetes"},
				},
				Explanation: "matched 2 of 3 required skills",
			},
		},
	}
}

func TestWriteMatchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteMatchResults(json): %v", err)
	}
	var decoded models.MatchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Total != 1 || decoded.QueryTime != 42 {
		t.Errorf("decoded total=%d query_time=%d", decoded.Total, decoded.QueryTime)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].EntityID != "cv-1" {
		t.Errorf("decoded results: want one result with id cv-1, got %+v", decoded.Results)
	}
}

func TestWriteMatchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteMatchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 matches", "42ms", "Rank: 1", "Score: 87.50", "ID: cv-1", "Matched skills: go, sql", "Missing skills: kubernetes", "matched 2 of 3"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteMatchResults_unknownFormatTreatedAsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatchResults(&buf, sampleResponse(), MatchOutputFormat("unknown")); err != nil {
		t.Fatalf("WriteMatchResults(unknown): %v", err)
	}
	if !strings.Contains(buf.String(), "Found") {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"maxLen zero", "ab", 0, "ab"},
		{"maxLen negative", "ab", -1, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
		{"single long", "word", 1, "word"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWords(tt.s, tt.maxWords)
			if got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}

func TestWriteSummary(t *testing.T) {
	longSentence := strings.Repeat("backend services at scale ", 12) // well past the word cap
	s := &profile.Summary{
		Text:           "Jane builds Go services",
		Sentences:      []string{"Jane builds Go services", longSentence},
		Keywords:       []string{"services", "backend"},
		Method:         "extractive",
		OriginalLength: 8,
		SummaryLength:  2,
	}
	var buf bytes.Buffer
	WriteSummary(&buf, "cv-1", s, []string{"Add more technical skills"})
	out := buf.String()
	for _, sub := range []string{"Summary for cv-1", "2 of 8 sentences", "Jane builds Go services", "Keywords: services, backend", "Recommendations:", "Add more technical skills"} {
		if !strings.Contains(out, sub) {
			t.Errorf("summary output missing %q:\n%s", sub, out)
		}
	}
	if !strings.Contains(out, "...") {
		t.Error("long sentence should be clipped per word")
	}
	if strings.Contains(out, longSentence) {
		t.Error("full run-on sentence must not appear in output")
	}
}

func TestPrintMatchResults(t *testing.T) {
	response := &models.MatchResponse{Total: 0, QueryTime: 1}
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() {
		os.Stdout = oldStdout
		_ = w.Close()
	}()
	PrintMatchResults(response)
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	if !strings.Contains(buf.String(), "Found 0 matches") {
		t.Errorf("PrintMatchResults should write to stdout; got %q", buf.String())
	}
}
