// Package models defines core data structures for candidate profiles, job postings, and match results.
package models

import "time"

// CandidateStatus is the processing state of a candidate profile.
type CandidateStatus string

const (
	// CandidateStatusProcessed means the profile is parsed and indexable.
	CandidateStatusProcessed CandidateStatus = "processed"
	// CandidateStatusFailed means parsing or embedding failed.
	CandidateStatusFailed CandidateStatus = "failed"
)

// PersonalInfo holds identity fields extracted from a CV. All fields are optional.
type PersonalInfo struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// Education is a single education entry on a candidate profile.
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	Year        string `json:"year,omitempty"`
}

// Experience is a single work-experience entry on a candidate profile.
type Experience struct {
	Position    string `json:"position"`
	Company     string `json:"company,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

// CandidateProfile is a parsed CV with structured fields and the original raw text.
type CandidateProfile struct {
	ID           string          `json:"id"`
	PersonalInfo PersonalInfo    `json:"personal_info"`
	Education    []Education     `json:"education,omitempty"`
	Experience   []Experience    `json:"experience,omitempty"`
	Skills       []string        `json:"skills,omitempty"`
	Language     string          `json:"language,omitempty"`
	RawText      string          `json:"raw_text,omitempty"`
	Filename     string          `json:"filename,omitempty"`
	Status       CandidateStatus `json:"status,omitempty"`
	UploadedAt   time.Time       `json:"uploaded_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
