// Package canonical builds deterministic text documents from profile and posting records.
//
// The canonical text is what gets embedded; the structured fields ride alongside so
// the scorer never has to re-extract them from free text. Field order is fixed, so
// identical input records always produce identical text.
package canonical

import (
	"errors"
	"strings"

	"github.com/talentmatch/talentmatch/internal/models"
)

// ErrEmptyDocument means canonicalization produced blank text. Records that
// canonicalize empty must never be embedded; the error propagates to the caller.
var ErrEmptyDocument = errors.New("canonical document is empty")

// rawTextLimit bounds the free-form CV text appended as a fallback signal.
const rawTextLimit = 1000

// Document is the deterministic textual form of a record plus the structured
// fields the match scorer consumes.
type Document struct {
	EntityID string
	Kind     models.EntityKind
	Text     string

	// Candidate-side structured fields.
	Skills           []string
	ExperienceCount  int
	EducationDegrees []string

	// Posting-side structured fields.
	RequiredSkills []string
	EducationLevel string
}

// Candidate builds the canonical document for a candidate profile.
// Concatenation order: identity, education, experience, skills, raw-text prefix.
func Candidate(p *models.CandidateProfile) (*Document, error) {
	var parts []string
	if p.PersonalInfo.Name != "" {
		parts = append(parts, "Name: "+p.PersonalInfo.Name)
	}
	degrees := make([]string, 0, len(p.Education))
	if len(p.Education) > 0 {
		eduParts := make([]string, 0, len(p.Education))
		for _, edu := range p.Education {
			line := strings.TrimSpace(strings.Join([]string{edu.Degree, edu.Field, edu.Institution}, " "))
			if line != "" {
				eduParts = append(eduParts, line)
			}
			if edu.Degree != "" {
				degrees = append(degrees, edu.Degree)
			}
		}
		if len(eduParts) > 0 {
			parts = append(parts, "Education: "+strings.Join(eduParts, " "))
		}
	}
	if len(p.Experience) > 0 {
		expParts := make([]string, 0, len(p.Experience))
		for _, exp := range p.Experience {
			line := strings.TrimSpace(strings.Join([]string{exp.Position, exp.Company, exp.Description}, " "))
			if line != "" {
				expParts = append(expParts, line)
			}
		}
		if len(expParts) > 0 {
			parts = append(parts, "Experience: "+strings.Join(expParts, " "))
		}
	}
	if len(p.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(p.Skills, " "))
	}
	if raw := strings.TrimSpace(p.RawText); raw != "" {
		parts = append(parts, truncateRunes(raw, rawTextLimit))
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	if text == "" {
		return nil, ErrEmptyDocument
	}
	return &Document{
		EntityID:         p.ID,
		Kind:             models.KindCandidate,
		Text:             text,
		Skills:           append([]string(nil), p.Skills...),
		ExperienceCount:  len(p.Experience),
		EducationDegrees: degrees,
	}, nil
}

// Posting builds the canonical document for a job posting.
// Concatenation order: title, company, description, requirements, required skills.
func Posting(j *models.JobPosting) (*Document, error) {
	var parts []string
	if j.Title != "" {
		parts = append(parts, "Position: "+j.Title)
	}
	if j.Company != "" {
		parts = append(parts, "Company: "+j.Company)
	}
	if j.Description != "" {
		parts = append(parts, "Description: "+j.Description)
	}
	if len(j.Requirements) > 0 {
		parts = append(parts, "Requirements: "+strings.Join(j.Requirements, " "))
	}
	if len(j.RequiredSkills) > 0 {
		parts = append(parts, "Required Skills: "+strings.Join(j.RequiredSkills, " "))
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	if text == "" {
		return nil, ErrEmptyDocument
	}
	return &Document{
		EntityID:       j.ID,
		Kind:           models.KindPosting,
		Text:           text,
		RequiredSkills: append([]string(nil), j.RequiredSkills...),
		EducationLevel: j.EducationLevel,
	}, nil
}

// truncateRunes cuts s to at most n runes. Byte slicing would split multi-byte
// characters in CVs with non-ASCII text.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
