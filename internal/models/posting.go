package models

import "time"

// EmploymentType is the employment arrangement offered by a posting.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
	EmploymentFreelance  EmploymentType = "freelance"
)

// PostingStatus is the lifecycle state of a job posting.
type PostingStatus string

const (
	// PostingStatusActive postings participate in matching and reindex.
	PostingStatusActive PostingStatus = "active"
	PostingStatusClosed PostingStatus = "closed"
	PostingStatusDraft  PostingStatus = "draft"
)

// Indexable reports whether a posting in this state participates in matching.
// Drafts and closed postings are persisted but kept out of the vector index;
// an empty status counts as active.
func (s PostingStatus) Indexable() bool {
	return s == PostingStatusActive || s == ""
}

// JobPosting is a job advertisement with the requirements the scorer evaluates against.
type JobPosting struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Company        string         `json:"company"`
	Description    string         `json:"description,omitempty"`
	Requirements   []string       `json:"requirements,omitempty"`
	RequiredSkills []string       `json:"required_skills,omitempty"`
	// EducationLevel is a degree token such as "bachelor" or "master"; matched
	// case-insensitively against candidate degree text.
	EducationLevel string         `json:"education_level,omitempty"`
	Location       string         `json:"location,omitempty"`
	EmploymentType EmploymentType `json:"employment_type,omitempty"`
	Status         PostingStatus  `json:"status,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
