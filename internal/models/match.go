package models

// EntityKind identifies which of the two vector indexes an entity belongs to.
type EntityKind string

const (
	// KindCandidate entities live in the candidate index.
	KindCandidate EntityKind = "candidate"
	// KindPosting entities live in the posting index.
	KindPosting EntityKind = "posting"
)

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	return k == KindCandidate || k == KindPosting
}

// MatchBreakdown explains how a composite match score was assembled.
type MatchBreakdown struct {
	SkillsScore     float64  `json:"skills_score"`
	ExperienceScore float64  `json:"experience_score"`
	EducationScore  float64  `json:"education_score"`
	BaseSimilarity  float64  `json:"base_similarity"`
	MatchedSkills   []string `json:"matched_skills"`
	MissingSkills   []string `json:"missing_skills"`
	ExtraSkills     []string `json:"extra_skills"`
}

// MatchResult is one scored candidate/posting pair.
type MatchResult struct {
	EntityID    string         `json:"entity_id"`
	Score       float64        `json:"similarity_score"` // 0-100
	Breakdown   MatchBreakdown `json:"breakdown"`
	Explanation string         `json:"explanation,omitempty"`
	Rank        int            `json:"rank,omitempty"`
}

// MatchRequest is a top-k matching request against one of the indexes.
type MatchRequest struct {
	Kind EntityKind `json:"kind"` // kind of entities to return
	// Exactly one of EntityID or the inline record fields below is used as the query.
	EntityID  string            `json:"entity_id,omitempty"`
	Candidate *CandidateProfile `json:"candidate,omitempty"`
	Posting   *JobPosting       `json:"posting,omitempty"`
	TopK      int               `json:"top_k,omitempty"`
	MinScore  float64           `json:"min_score,omitempty"`
	// RequireSkillFloor drops results matching fewer than 70% of the posting's
	// required skills. Scoring still runs first so explanations stay available.
	RequireSkillFloor bool `json:"require_skill_floor,omitempty"`
}

// Normalize fills defaults and caps TopK.
func (r *MatchRequest) Normalize() {
	if r.TopK <= 0 {
		r.TopK = 10
	}
	if r.TopK > 100 {
		r.TopK = 100
	}
}

// MatchResponse is the ranked result set for a MatchRequest.
type MatchResponse struct {
	Results    []*MatchResult `json:"results"`
	Total      int            `json:"total"`
	Generation uint64         `json:"index_generation"`
	QueryTime  int64          `json:"query_time_ms"`
}
