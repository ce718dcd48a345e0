// Package integration provides end-to-end tests (requires real storage and indices).
package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/talentmatch/talentmatch/internal/embedding"
	"github.com/talentmatch/talentmatch/internal/engine"
	"github.com/talentmatch/talentmatch/internal/models"
	"github.com/talentmatch/talentmatch/internal/scoring"
	"github.com/talentmatch/talentmatch/internal/storage"
)

func newIntegrationEngine(t *testing.T) (*engine.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	scorer, err := scoring.NewScorer(scoring.DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	eng, err := engine.NewEngine(store, embedding.NewMockEmbedder(32), scorer, engine.Config{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng, dir
}

func seedCorpus(t *testing.T, eng *engine.Engine) {
	t.Helper()
	ctx := context.Background()
	candidates := []*models.CandidateProfile{
		{
			ID:           "cv-backend",
			PersonalInfo: models.PersonalInfo{Name: "Backend Person"},
			Skills:       []string{"go", "sql", "docker"},
			Experience: []models.Experience{
				{Position: "Engineer", Company: "Acme"},
				{Position: "Developer", Company: "Initech"},
				{Position: "Developer", Company: "Globex"},
			},
			Education: []models.Education{
				{Institution: "State University", Degree: "Bachelor of Science"},
			},
		},
		{
			ID:           "cv-data",
			PersonalInfo: models.PersonalInfo{Name: "Data Person"},
			Skills:       []string{"python", "sql"},
			Experience: []models.Experience{
				{Position: "Analyst", Company: "Acme"},
			},
		},
	}
	for _, p := range candidates {
		if err := eng.UpsertCandidate(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	postings := []*models.JobPosting{
		{
			ID:             "job-backend",
			Title:          "Backend Engineer",
			Company:        "Acme",
			Description:    "Build and operate backend services in Go",
			RequiredSkills: []string{"go", "sql"},
			EducationLevel: "bachelor",
		},
		{
			ID:             "job-data",
			Title:          "Data Analyst",
			Company:        "Initech",
			Description:    "Analyze data with SQL and Python",
			RequiredSkills: []string{"python", "sql"},
		},
	}
	for _, j := range postings {
		if err := eng.UpsertPosting(ctx, j); err != nil {
			t.Fatal(err)
		}
	}
}

func TestIntegration_MatchBothDirections(t *testing.T) {
	eng, _ := newIntegrationEngine(t)
	seedCorpus(t, eng)
	ctx := context.Background()

	// Posting to candidates.
	resp, err := eng.Match(ctx, &models.MatchRequest{
		Kind:     models.KindCandidate,
		EntityID: "job-backend",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("candidate matches: got %d, want 2", resp.Total)
	}
	if resp.Results[0].EntityID != "cv-backend" {
		t.Errorf("top candidate: got %s, want cv-backend", resp.Results[0].EntityID)
	}
	if resp.Results[0].Breakdown.SkillsScore != 1.0 {
		t.Errorf("top skills score: got %f", resp.Results[0].Breakdown.SkillsScore)
	}

	// Candidate to postings.
	resp, err = eng.Match(ctx, &models.MatchRequest{
		Kind:     models.KindPosting,
		EntityID: "cv-data",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("posting matches: got %d, want 2", resp.Total)
	}
	if resp.Results[0].EntityID != "job-data" {
		t.Errorf("top posting: got %s, want job-data", resp.Results[0].EntityID)
	}
}

func TestIntegration_ReindexPreservesMatching(t *testing.T) {
	eng, _ := newIntegrationEngine(t)
	seedCorpus(t, eng)
	ctx := context.Background()

	before, err := eng.Match(ctx, &models.MatchRequest{Kind: models.KindCandidate, EntityID: "job-backend"})
	if err != nil {
		t.Fatal(err)
	}

	report, err := eng.Reindex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Candidates != 2 || report.Postings != 2 {
		t.Errorf("report: %+v", report)
	}

	after, err := eng.Match(ctx, &models.MatchRequest{Kind: models.KindCandidate, EntityID: "job-backend"})
	if err != nil {
		t.Fatal(err)
	}
	if after.Generation <= before.Generation {
		t.Errorf("generation should advance: %d -> %d", before.Generation, after.Generation)
	}
	if len(after.Results) != len(before.Results) {
		t.Fatalf("result count changed: %d -> %d", len(before.Results), len(after.Results))
	}
	for i := range after.Results {
		if after.Results[i].EntityID != before.Results[i].EntityID {
			t.Errorf("ranking changed at %d: %s -> %s",
				i, before.Results[i].EntityID, after.Results[i].EntityID)
		}
	}
}

func TestIntegration_SnapshotRoundTrip(t *testing.T) {
	eng, dir := newIntegrationEngine(t)
	seedCorpus(t, eng)
	ctx := context.Background()

	candPath := filepath.Join(dir, "candidates.idx")
	postPath := filepath.Join(dir, "postings.idx")
	if err := eng.SaveSnapshots(candPath, postPath); err != nil {
		t.Fatal(err)
	}
	if err := eng.LoadSnapshots(candPath, postPath); err != nil {
		t.Fatal(err)
	}

	resp, err := eng.Match(ctx, &models.MatchRequest{Kind: models.KindCandidate, EntityID: "job-backend"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Errorf("matches after restore: got %d, want 2", resp.Total)
	}
}
