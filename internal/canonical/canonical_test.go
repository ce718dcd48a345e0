package canonical

import (
	"errors"
	"strings"
	"testing"

	"github.com/talentmatch/talentmatch/internal/models"
)

func TestCandidate_Deterministic(t *testing.T) {
	p := &models.CandidateProfile{
		ID:           "cv-1",
		PersonalInfo: models.PersonalInfo{Name: "Ada Lovelace"},
		Education: []models.Education{
			{Institution: "University of London", Degree: "BSc", Field: "Mathematics"},
		},
		Experience: []models.Experience{
			{Position: "Engineer", Company: "Analytical Engines", Description: "programming"},
		},
		Skills: []string{"Python", "SQL"},
	}
	a, err := Candidate(p)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Candidate(p)
	if err != nil {
		t.Fatal(err)
	}
	if a.Text != b.Text {
		t.Errorf("canonical text not deterministic:\n%q\n%q", a.Text, b.Text)
	}
	if !strings.Contains(a.Text, "BSc Mathematics University of London") {
		t.Errorf("education line missing or reordered: %q", a.Text)
	}
	if !strings.Contains(a.Text, "Engineer Analytical Engines programming") {
		t.Errorf("experience line missing or reordered: %q", a.Text)
	}
	if a.ExperienceCount != 1 {
		t.Errorf("ExperienceCount=%d", a.ExperienceCount)
	}
	if len(a.EducationDegrees) != 1 || a.EducationDegrees[0] != "BSc" {
		t.Errorf("EducationDegrees=%v", a.EducationDegrees)
	}
}

func TestCandidate_RawTextTruncated(t *testing.T) {
	long := strings.Repeat("x", 3000)
	p := &models.CandidateProfile{ID: "cv-2", RawText: long}
	doc, err := Candidate(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Text) != 1000 {
		t.Errorf("raw text not truncated to 1000 chars, got %d", len(doc.Text))
	}
}

func TestCandidate_Empty(t *testing.T) {
	p := &models.CandidateProfile{ID: "cv-3", RawText: "   \n\t "}
	if _, err := Candidate(p); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestPosting(t *testing.T) {
	j := &models.JobPosting{
		ID:             "job-1",
		Title:          "Backend Engineer",
		Company:        "Acme",
		Description:    "Build services",
		RequiredSkills: []string{"Go", "SQL"},
	}
	doc, err := Posting(j)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(doc.Text, "Position: Backend Engineer") {
		t.Errorf("title should come first: %q", doc.Text)
	}
	if len(doc.RequiredSkills) != 2 {
		t.Errorf("RequiredSkills=%v", doc.RequiredSkills)
	}
}

func TestPosting_Empty(t *testing.T) {
	if _, err := Posting(&models.JobPosting{ID: "job-2"}); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}
