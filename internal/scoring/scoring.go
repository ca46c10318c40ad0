package scoring

import (
	"fmt"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
)

// #region score
// Score is the linear model score of one candidate: the bias weights[0] plus
// the weight of every feature occurrence. Indices must be in range.
func Score(weights []float64, features []int) float64 {
	sum := weights[0]
	for _, f := range features {
		sum += weights[f]
	}
	return sum
}

// ScoreChecked is Score with index validation, for input that has not been
// checked against the alphabet.
func ScoreChecked(weights []float64, features []int) (float64, error) {
	if len(weights) == 0 {
		return 0, fmt.Errorf("%w: empty weight vector", frame.ErrMalformedInput)
	}
	for _, f := range features {
		if f < 0 || f >= len(weights) {
			return 0, fmt.Errorf("%w: feature index %d outside [0,%d)", frame.ErrMalformedInput, f, len(weights))
		}
	}
	return Score(weights, features), nil
}

// #endregion score

// #region scorer
// Scorer assigns a score to a candidate's feature list.
type Scorer interface {
	ScoreFeatures(features []int) (float64, error)
}

// Ensemble linearly interpolates two models: (1-Alpha)*First + Alpha*Second.
type Ensemble struct {
	First  *Model
	Second *Model
	Alpha  float64
}

// ScoreFeatures implements Scorer.
func (e *Ensemble) ScoreFeatures(features []int) (float64, error) {
	s1, err := e.First.ScoreFeatures(features)
	if err != nil {
		return 0, err
	}
	s2, err := e.Second.ScoreFeatures(features)
	if err != nil {
		return 0, err
	}
	return (1-e.Alpha)*s1 + e.Alpha*s2, nil
}

// Interpolate builds an ensemble; alpha must lie in [0,1].
func Interpolate(first, second *Model, alpha float64) (*Ensemble, error) {
	if first == nil || second == nil {
		return nil, fmt.Errorf("interpolate: both models are required")
	}
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("interpolate: alpha %.4f outside [0,1]", alpha)
	}
	return &Ensemble{First: first, Second: second, Alpha: alpha}, nil
}

// ScoreInstance rewrites every candidate score of inst using s.
func ScoreInstance(s Scorer, inst *frame.Instance) error {
	for ri := range inst.Roles {
		role := &inst.Roles[ri]
		for ci := range role.Candidates {
			score, err := s.ScoreFeatures(role.Candidates[ci].Features)
			if err != nil {
				return fmt.Errorf("score role %s candidate %d: %w", role.Name, ci, err)
			}
			role.Candidates[ci].Score = score
		}
	}
	inst.Prescored = true
	return nil
}

// #endregion scorer
