// Package analytics aggregates corpus statistics and exports XLSX reports.
package analytics

import (
	"context"
	"sort"
	"strings"

	"github.com/talentmatch/talentmatch/internal/models"
	"github.com/talentmatch/talentmatch/internal/storage"
)

// reportPageSize is the batch size used when walking storage.
const reportPageSize = 200

// SkillCount is one skill with its occurrence count.
type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

// Report is an aggregate view of the candidate and posting corpus.
type Report struct {
	Candidates          int64          `json:"candidates"`
	Postings            int64          `json:"postings"`
	ActivePostings      int            `json:"active_postings"`
	FailedCandidates    int            `json:"failed_candidates"`
	AvgSkillsPerProfile float64        `json:"avg_skills_per_profile"`
	TopCandidateSkills  []SkillCount   `json:"top_candidate_skills"`
	TopRequiredSkills   []SkillCount   `json:"top_required_skills"`
	Languages           map[string]int `json:"languages"`
}

// Reporter builds analytics reports from storage.
type Reporter struct {
	storage  storage.Storage
	topLimit int
}

// NewReporter creates a reporter. topLimit caps the skill frequency tables;
// zero means 20.
func NewReporter(store storage.Storage, topLimit int) *Reporter {
	if topLimit <= 0 {
		topLimit = 20
	}
	return &Reporter{storage: store, topLimit: topLimit}
}

// Build walks all candidates and postings and aggregates the report.
func (r *Reporter) Build(ctx context.Context) (*Report, error) {
	report := &Report{Languages: make(map[string]int)}

	var err error
	report.Candidates, err = r.storage.CountCandidates(ctx)
	if err != nil {
		return nil, err
	}
	report.Postings, err = r.storage.CountPostings(ctx)
	if err != nil {
		return nil, err
	}

	candidateSkills := make(map[string]int)
	totalSkills := 0
	profiles := 0
	for offset := 0; ; offset += reportPageSize {
		batch, err := r.storage.ListCandidates(ctx, offset, reportPageSize)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		for _, p := range batch {
			profiles++
			totalSkills += len(p.Skills)
			if p.Status == models.CandidateStatusFailed {
				report.FailedCandidates++
			}
			if p.Language != "" {
				report.Languages[p.Language]++
			}
			for _, s := range p.Skills {
				candidateSkills[strings.ToLower(s)]++
			}
		}
	}
	if profiles > 0 {
		report.AvgSkillsPerProfile = float64(totalSkills) / float64(profiles)
	}

	requiredSkills := make(map[string]int)
	for offset := 0; ; offset += reportPageSize {
		batch, err := r.storage.ListPostings(ctx, offset, reportPageSize)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		for _, j := range batch {
			if j.Status == models.PostingStatusActive {
				report.ActivePostings++
			}
			for _, s := range j.RequiredSkills {
				requiredSkills[strings.ToLower(s)]++
			}
		}
	}

	report.TopCandidateSkills = topSkills(candidateSkills, r.topLimit)
	report.TopRequiredSkills = topSkills(requiredSkills, r.topLimit)
	return report, nil
}

// topSkills returns the most frequent skills, count descending, name
// ascending on ties.
func topSkills(counts map[string]int, limit int) []SkillCount {
	out := make([]SkillCount, 0, len(counts))
	for skill, count := range counts {
		out = append(out, SkillCount{Skill: skill, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Skill < out[j].Skill
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
