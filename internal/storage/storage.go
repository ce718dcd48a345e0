// Package storage defines the persistence interface for candidate profiles
// and job postings.
package storage

import (
	"context"
	"errors"

	"github.com/talentmatch/talentmatch/internal/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage defines candidate and posting persistence operations.
type Storage interface {
	// Candidate operations
	CreateCandidate(ctx context.Context, p *models.CandidateProfile) error
	GetCandidate(ctx context.Context, id string) (*models.CandidateProfile, error)
	UpdateCandidate(ctx context.Context, p *models.CandidateProfile) error
	DeleteCandidate(ctx context.Context, id string) error
	ListCandidates(ctx context.Context, offset, limit int) ([]*models.CandidateProfile, error)

	// Posting operations
	CreatePosting(ctx context.Context, j *models.JobPosting) error
	GetPosting(ctx context.Context, id string) (*models.JobPosting, error)
	UpdatePosting(ctx context.Context, j *models.JobPosting) error
	DeletePosting(ctx context.Context, id string) error
	ListPostings(ctx context.Context, offset, limit int) ([]*models.JobPosting, error)

	// Stats
	CountCandidates(ctx context.Context) (int64, error)
	CountPostings(ctx context.Context) (int64, error)

	Close() error
}
