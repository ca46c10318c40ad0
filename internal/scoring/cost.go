package scoring

import (
	"fmt"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/span"
)

// CostFunc is the structured loss of predicting candidate when gold is correct.
type CostFunc func(candidate, gold span.Span) float64

// HammingCost is the 0/1 loss: any span other than the gold one costs 1.
func HammingCost(candidate, gold span.Span) float64 {
	if candidate == gold {
		return 0
	}
	return 1
}

// TokenCost counts tokens the candidate gets wrong: the symmetric difference
// between candidate and gold token sets.
func TokenCost(candidate, gold span.Span) float64 {
	shared := 0
	if span.Overlaps(candidate, gold) {
		lo := max(candidate.Start, gold.Start)
		hi := min(candidate.End, gold.End)
		shared = hi - lo + 1
	}
	return float64(candidate.Len() + gold.Len() - 2*shared)
}

// Augment returns the loss-augmented objective for every candidate, in the
// flattened (role, candidate) order. Roles absent from gold count as unfilled.
func Augment(inst *frame.Instance, cost CostFunc, multiple float64) []float64 {
	out := make([]float64, 0, inst.CandidateCount())
	for _, r := range inst.Roles {
		gold, ok := inst.Gold[r.Name]
		if !ok {
			gold = span.Null
		}
		for _, c := range r.Candidates {
			out = append(out, c.Score+multiple*cost(c.Span, gold))
		}
	}
	return out
}

// CostByName maps a configuration name to a cost function.
func CostByName(name string) (CostFunc, error) {
	switch name {
	case "", "hamming":
		return HammingCost, nil
	case "token":
		return TokenCost, nil
	}
	return nil, fmt.Errorf("unknown cost function %q (want hamming or token)", name)
}
