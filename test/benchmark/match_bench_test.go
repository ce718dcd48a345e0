package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/talentmatch/talentmatch/internal/canonical"
	"github.com/talentmatch/talentmatch/internal/embedding"
	"github.com/talentmatch/talentmatch/internal/models"
	"github.com/talentmatch/talentmatch/internal/scoring"
	"github.com/talentmatch/talentmatch/internal/vector"
)

func BenchmarkFlatIndexSearch(b *testing.B) {
	idx, _ := vector.NewFlatIndex(384)
	ctx := context.Background()
	embedder := embedding.NewMockEmbedder(384)
	for i := 0; i < 1000; i++ {
		vec, _ := embedder.Embed(ctx, fmt.Sprintf("candidate profile %d with assorted skills", i))
		_ = idx.Add(fmt.Sprintf("cv-%d", i), vec)
	}
	query, _ := embedder.Embed(ctx, "backend engineer with go and sql")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(query, 10)
	}
}

func BenchmarkScorer(b *testing.B) {
	scorer, _ := scoring.NewScorer(scoring.DefaultWeights())
	candDoc, _ := canonical.Candidate(&models.CandidateProfile{
		ID:     "cv-1",
		Skills: []string{"go", "sql", "docker", "kubernetes", "aws"},
		Experience: []models.Experience{
			{Position: "Engineer", Company: "Acme"},
			{Position: "Developer", Company: "Initech"},
		},
		Education: []models.Education{
			{Institution: "State University", Degree: "Bachelor of Science"},
		},
	})
	postDoc, _ := canonical.Posting(&models.JobPosting{
		ID:             "job-1",
		Title:          "Backend Engineer",
		Description:    "Build backend services",
		RequiredSkills: []string{"go", "sql", "terraform"},
		EducationLevel: "bachelor",
	})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = scorer.Score(candDoc, postDoc, 0.8)
	}
}

func BenchmarkMockEmbed(b *testing.B) {
	embedder := embedding.NewMockEmbedder(384)
	ctx := context.Background()
	text := "senior backend engineer with go, sql, and container experience"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = embedder.Embed(ctx, text)
	}
}
