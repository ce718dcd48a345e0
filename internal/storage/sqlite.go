// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/talentmatch/talentmatch/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS candidates (
		id TEXT PRIMARY KEY,
		personal_info TEXT NOT NULL,
		education TEXT,
		experience TEXT,
		skills TEXT,
		language TEXT,
		raw_text TEXT,
		filename TEXT,
		status TEXT,
		uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_candidates_uploaded_at ON candidates(uploaded_at);

	CREATE TABLE IF NOT EXISTS postings (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		company TEXT,
		description TEXT,
		requirements TEXT,
		required_skills TEXT,
		education_level TEXT,
		location TEXT,
		employment_type TEXT,
		status TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_postings_status ON postings(status);
	CREATE INDEX IF NOT EXISTS idx_postings_created_at ON postings(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateCandidate inserts a candidate profile.
func (s *SQLiteStorage) CreateCandidate(ctx context.Context, p *models.CandidateProfile) error {
	personal, education, experience, skills, err := marshalCandidateFields(p)
	if err != nil {
		return err
	}

	now := time.Now()
	if p.UploadedAt.IsZero() {
		p.UploadedAt = now
	}
	p.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO candidates (id, personal_info, education, experience, skills, language, raw_text, filename, status, uploaded_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, personal, education, experience, skills, p.Language, p.RawText, p.Filename, string(p.Status), p.UploadedAt, p.UpdatedAt,
	)
	return err
}

// GetCandidate returns a candidate profile by ID.
func (s *SQLiteStorage) GetCandidate(ctx context.Context, id string) (*models.CandidateProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, personal_info, education, experience, skills, language, raw_text, filename, status, uploaded_at, updated_at
		 FROM candidates WHERE id = ?`, id,
	)
	p, err := scanCandidate(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
	}
	return p, err
}

// UpdateCandidate updates an existing candidate profile.
func (s *SQLiteStorage) UpdateCandidate(ctx context.Context, p *models.CandidateProfile) error {
	personal, education, experience, skills, err := marshalCandidateFields(p)
	if err != nil {
		return err
	}

	p.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET personal_info = ?, education = ?, experience = ?, skills = ?, language = ?, raw_text = ?, filename = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		personal, education, experience, skills, p.Language, p.RawText, p.Filename, string(p.Status), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("candidate %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// DeleteCandidate removes a candidate profile by ID.
func (s *SQLiteStorage) DeleteCandidate(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("candidate %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListCandidates returns candidate profiles ordered by upload time, newest
// first, with offset and limit.
func (s *SQLiteStorage) ListCandidates(ctx context.Context, offset, limit int) ([]*models.CandidateProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, personal_info, education, experience, skills, language, raw_text, filename, status, uploaded_at, updated_at
		 FROM candidates ORDER BY uploaded_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.CandidateProfile
	for rows.Next() {
		p, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreatePosting inserts a job posting.
func (s *SQLiteStorage) CreatePosting(ctx context.Context, j *models.JobPosting) error {
	requirements, skills, err := marshalPostingFields(j)
	if err != nil {
		return err
	}

	now := time.Now()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	if j.Status == "" {
		j.Status = models.PostingStatusActive
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO postings (id, title, company, description, requirements, required_skills, education_level, location, employment_type, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Title, j.Company, j.Description, requirements, skills, j.EducationLevel, j.Location, string(j.EmploymentType), string(j.Status), j.CreatedAt, j.UpdatedAt,
	)
	return err
}

// GetPosting returns a job posting by ID.
func (s *SQLiteStorage) GetPosting(ctx context.Context, id string) (*models.JobPosting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, company, description, requirements, required_skills, education_level, location, employment_type, status, created_at, updated_at
		 FROM postings WHERE id = ?`, id,
	)
	j, err := scanPosting(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("posting %s: %w", id, ErrNotFound)
	}
	return j, err
}

// UpdatePosting updates an existing job posting.
func (s *SQLiteStorage) UpdatePosting(ctx context.Context, j *models.JobPosting) error {
	requirements, skills, err := marshalPostingFields(j)
	if err != nil {
		return err
	}

	j.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE postings SET title = ?, company = ?, description = ?, requirements = ?, required_skills = ?, education_level = ?, location = ?, employment_type = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		j.Title, j.Company, j.Description, requirements, skills, j.EducationLevel, j.Location, string(j.EmploymentType), string(j.Status), j.UpdatedAt, j.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("posting %s: %w", j.ID, ErrNotFound)
	}
	return nil
}

// DeletePosting removes a job posting by ID.
func (s *SQLiteStorage) DeletePosting(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM postings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("posting %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListPostings returns job postings ordered by creation time, newest first,
// with offset and limit.
func (s *SQLiteStorage) ListPostings(ctx context.Context, offset, limit int) ([]*models.JobPosting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, company, description, requirements, required_skills, education_level, location, employment_type, status, created_at, updated_at
		 FROM postings ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.JobPosting
	for rows.Next() {
		j, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// CountCandidates returns the total number of candidate profiles.
func (s *SQLiteStorage) CountCandidates(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidates`).Scan(&count)
	return count, err
}

// CountPostings returns the total number of job postings.
func (s *SQLiteStorage) CountPostings(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM postings`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func marshalCandidateFields(p *models.CandidateProfile) (personal, education, experience, skills string, err error) {
	b, err := json.Marshal(p.PersonalInfo)
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to marshal personal info: %w", err)
	}
	personal = string(b)
	if b, err = json.Marshal(p.Education); err != nil {
		return "", "", "", "", fmt.Errorf("failed to marshal education: %w", err)
	}
	education = string(b)
	if b, err = json.Marshal(p.Experience); err != nil {
		return "", "", "", "", fmt.Errorf("failed to marshal experience: %w", err)
	}
	experience = string(b)
	if b, err = json.Marshal(p.Skills); err != nil {
		return "", "", "", "", fmt.Errorf("failed to marshal skills: %w", err)
	}
	skills = string(b)
	return personal, education, experience, skills, nil
}

func scanCandidate(row rowScanner) (*models.CandidateProfile, error) {
	var p models.CandidateProfile
	var personal, education, experience, skills, status string
	if err := row.Scan(&p.ID, &personal, &education, &experience, &skills, &p.Language, &p.RawText, &p.Filename, &status, &p.UploadedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = models.CandidateStatus(status)
	if err := json.Unmarshal([]byte(personal), &p.PersonalInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal personal info: %w", err)
	}
	if education != "" {
		if err := json.Unmarshal([]byte(education), &p.Education); err != nil {
			return nil, fmt.Errorf("failed to unmarshal education: %w", err)
		}
	}
	if experience != "" {
		if err := json.Unmarshal([]byte(experience), &p.Experience); err != nil {
			return nil, fmt.Errorf("failed to unmarshal experience: %w", err)
		}
	}
	if skills != "" {
		if err := json.Unmarshal([]byte(skills), &p.Skills); err != nil {
			return nil, fmt.Errorf("failed to unmarshal skills: %w", err)
		}
	}
	return &p, nil
}

func marshalPostingFields(j *models.JobPosting) (requirements, skills string, err error) {
	b, err := json.Marshal(j.Requirements)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal requirements: %w", err)
	}
	requirements = string(b)
	if b, err = json.Marshal(j.RequiredSkills); err != nil {
		return "", "", fmt.Errorf("failed to marshal required skills: %w", err)
	}
	skills = string(b)
	return requirements, skills, nil
}

func scanPosting(row rowScanner) (*models.JobPosting, error) {
	var j models.JobPosting
	var requirements, skills, employment, status string
	if err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Description, &requirements, &skills, &j.EducationLevel, &j.Location, &employment, &status, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.EmploymentType = models.EmploymentType(employment)
	j.Status = models.PostingStatus(status)
	if requirements != "" {
		if err := json.Unmarshal([]byte(requirements), &j.Requirements); err != nil {
			return nil, fmt.Errorf("failed to unmarshal requirements: %w", err)
		}
	}
	if skills != "" {
		if err := json.Unmarshal([]byte(skills), &j.RequiredSkills); err != nil {
			return nil, fmt.Errorf("failed to unmarshal required skills: %w", err)
		}
	}
	return &j, nil
}
