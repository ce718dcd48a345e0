package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/talentmatch/talentmatch/internal/canonical"
	"github.com/talentmatch/talentmatch/internal/models"
)

// skillFloorRatio is the fraction of required skills a candidate must hold to
// pass the skill floor.
const skillFloorRatio = 0.7

// Scorer combines component scores into a 0-100 composite with a breakdown.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer. Weights must validate.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Weights returns the scorer's weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score rates how well the candidate document fits the posting document.
// baseSimilarity is the cosine similarity of their embeddings in [0,1].
func (s *Scorer) Score(cand, post *canonical.Document, baseSimilarity float64) models.MatchResult {
	matched, missing, extra := diffSkills(post.RequiredSkills, cand.Skills)

	skillsScore := 1.0
	if len(post.RequiredSkills) > 0 {
		skillsScore = float64(len(matched)) / float64(len(post.RequiredSkills))
	}

	expScore := 1.0
	if s.weights.ExperienceTarget > 0 {
		expScore = math.Min(1, float64(cand.ExperienceCount)/float64(s.weights.ExperienceTarget))
	}

	eduScore := educationScore(post.EducationLevel, cand.EducationDegrees)

	baseSimilarity = clamp01(baseSimilarity)
	composite := s.weights.Skills*skillsScore +
		s.weights.Experience*expScore +
		s.weights.Education*eduScore +
		s.weights.Similarity*baseSimilarity
	score := math.Round(clamp01(composite)*100*100) / 100

	return models.MatchResult{
		EntityID: cand.EntityID,
		Score:    score,
		Breakdown: models.MatchBreakdown{
			SkillsScore:     skillsScore,
			ExperienceScore: expScore,
			EducationScore:  eduScore,
			BaseSimilarity:  baseSimilarity,
			MatchedSkills:   matched,
			MissingSkills:   missing,
			ExtraSkills:     extra,
		},
		Explanation: explain(skillsScore, expScore, eduScore, matched, missing),
	}
}

// MeetsSkillFloor reports whether the candidate holds at least 70% of the
// posting's required skills. A posting without required skills always passes.
func MeetsSkillFloor(required, candidate []string) bool {
	if len(required) == 0 {
		return true
	}
	matched, _, _ := diffSkills(required, candidate)
	floor := int(math.Ceil(skillFloorRatio * float64(len(required))))
	return len(matched) >= floor
}

// diffSkills compares skills case-insensitively and returns matched, missing
// and extra skills, each sorted and in lowercase.
func diffSkills(required, candidate []string) (matched, missing, extra []string) {
	reqSet := normalizeSet(required)
	candSet := normalizeSet(candidate)

	matched = make([]string, 0, len(reqSet))
	missing = make([]string, 0)
	extra = make([]string, 0)
	for skill := range reqSet {
		if _, ok := candSet[skill]; ok {
			matched = append(matched, skill)
		} else {
			missing = append(missing, skill)
		}
	}
	for skill := range candSet {
		if _, ok := reqSet[skill]; !ok {
			extra = append(extra, skill)
		}
	}
	sort.Strings(matched)
	sort.Strings(missing)
	sort.Strings(extra)
	return matched, missing, extra
}

func normalizeSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

// educationScore checks whether any of the candidate's degree strings contains
// the required education level as a case-insensitive substring. No required
// level scores full.
func educationScore(requiredLevel string, degrees []string) float64 {
	requiredLevel = strings.ToLower(strings.TrimSpace(requiredLevel))
	if requiredLevel == "" {
		return 1.0
	}
	for _, d := range degrees {
		if strings.Contains(strings.ToLower(d), requiredLevel) {
			return 1.0
		}
	}
	return 0.0
}

func explain(skills, exp, edu float64, matched, missing []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "skills %.0f%% (%d matched", skills*100, len(matched))
	if len(missing) > 0 {
		fmt.Fprintf(&b, ", missing: %s", strings.Join(missing, ", "))
	}
	fmt.Fprintf(&b, "), experience %.0f%%, education %.0f%%", exp*100, edu*100)
	return b.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
