// Package scoring computes weighted match scores between candidate and
// posting documents with a per-component breakdown.
package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights indicates weights outside [0,1] or a sum away from 1.
var ErrInvalidWeights = errors.New("invalid scoring weights")

// weightSumTolerance is the allowed deviation of the weight sum from 1.
const weightSumTolerance = 0.01

// Weights holds the component weights of the composite match score.
// Weights are used exactly as given; they are never renormalized.
type Weights struct {
	Skills     float64 `yaml:"skills" json:"skills"`
	Experience float64 `yaml:"experience" json:"experience"`
	Education  float64 `yaml:"education" json:"education"`
	Similarity float64 `yaml:"similarity" json:"similarity"`

	// ExperienceTarget is the experience-entry count that earns a full
	// experience score.
	ExperienceTarget int `yaml:"experience_target" json:"experience_target"`
}

// DefaultWeights returns the standard weighting: skills 0.4, experience 0.3,
// education 0.2, base similarity 0.1, with three experience entries for a
// full experience score.
func DefaultWeights() Weights {
	return Weights{
		Skills:           0.4,
		Experience:       0.3,
		Education:        0.2,
		Similarity:       0.1,
		ExperienceTarget: 3,
	}
}

// Validate checks that every weight is in [0,1] and the sum is within
// tolerance of 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"skills":     w.Skills,
		"experience": w.Experience,
		"education":  w.Education,
		"similarity": w.Similarity,
	} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s weight %v out of range [0,1]", ErrInvalidWeights, name, v)
		}
	}
	sum := w.Skills + w.Experience + w.Education + w.Similarity
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: weights sum to %.4f, want 1.0 within %.2f", ErrInvalidWeights, sum, weightSumTolerance)
	}
	if w.ExperienceTarget < 0 {
		return fmt.Errorf("%w: experience target %d is negative", ErrInvalidWeights, w.ExperienceTarget)
	}
	return nil
}
