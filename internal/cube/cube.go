package cube

import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/logd"
	"github.com/danielpatrickdp/argument-decoder/internal/span"
	"go.uber.org/zap"
)

// #region decoder
// Decoder picks each role's best filler independently and resolves the
// overlapping picks with a bounded cube-pruning merge.
type Decoder struct {
	config Config
	logger *zap.Logger
}

// NewDecoder creates a decoder. A non-positive beam width falls back to the default.
func NewDecoder(config Config, logger *zap.Logger) *Decoder {
	if config.BeamWidth <= 0 {
		config.BeamWidth = DefaultConfig().BeamWidth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{config: config, logger: logger}
}

// Decode solves one frame instance. objective, when non-nil, replaces the
// candidate scores during the search (flattened role-major, as produced by
// scoring.Augment); the returned choices always carry the original scores.
func (d *Decoder) Decode(inst *frame.Instance, objective []float64) (Result, error) {
	if err := inst.Validate(); err != nil {
		return Result{}, err
	}
	obj, err := splitObjective(inst, objective)
	if err != nil {
		return Result{}, err
	}

	// 1. Independent selection
	best := make([]int, len(inst.Roles))
	for ri := range inst.Roles {
		best[ri] = argmax(obj[ri])
	}

	// 2. Conflict detection
	var conflicting []int
	var committed []span.Span
	for ri, r := range inst.Roles {
		mine := r.Candidates[best[ri]].Span
		clash := false
		for rj, other := range inst.Roles {
			if rj != ri && span.Overlaps(mine, other.Candidates[best[rj]].Span) {
				clash = true
				break
			}
		}
		if clash {
			conflicting = append(conflicting, ri)
		} else if !mine.IsNull() {
			committed = append(committed, mine)
		}
	}

	// 3. Merge the conflicting roles only
	picks := make([]int, len(inst.Roles))
	copy(picks, best)
	res := Result{}
	if len(conflicting) > 0 {
		roles := make([]frame.Role, len(conflicting))
		objs := make([][]float64, len(conflicting))
		for i, ri := range conflicting {
			roles[i] = inst.Roles[ri]
			objs[i] = obj[ri]
			res.Conflicting = append(res.Conflicting, inst.Roles[ri].Name)
		}
		merged, ok := merge(roles, objs, committed, d.config.BeamWidth)
		res.Fallback = !ok
		for i, ri := range conflicting {
			picks[ri] = merged[i]
		}
		d.logger.Debug("cube merge",
			zap.String("frame", inst.Frame),
			zap.Strings("conflicting", res.Conflicting),
			zap.Bool("fallback", res.Fallback))
	}

	// 4. Committed + merged
	res.Assignment = make(frame.Assignment, len(inst.Roles))
	for ri, r := range inst.Roles {
		res.Assignment[ri] = choice(r, picks[ri])
	}
	return res, nil
}

// #endregion decoder

// #region merge
// hypothesis is a partial joint assignment over the first k merged roles.
type hypothesis struct {
	picks []int
	spans []span.Span
	value logd.Value
}

// merge runs the cube-pruning search over roles in order and returns one
// candidate index per role (-1 = unfilled without a sentinel candidate).
// ok is false when every surviving combination had zero probability.
func merge(roles []frame.Role, obj [][]float64, committed []span.Span, beam int) ([]int, bool) {
	first := ranked(obj[0])
	hyps := make([]hypothesis, 0, min(beam, len(first)))
	for _, ci := range first[:min(beam, len(first))] {
		s := roles[0].Candidates[ci].Span
		v := logd.Exp(obj[0][ci])
		if span.AnyOverlap(s, committed) {
			v = logd.Zero
		}
		hyps = append(hyps, hypothesis{picks: []int{ci}, spans: []span.Span{s}, value: v})
	}
	sortHypotheses(hyps)

	for k := 1; k < len(roles); k++ {
		order := ranked(obj[k])
		next := make([]hypothesis, 0, len(hyps)*len(order))
		for _, h := range hyps {
			for _, ci := range order {
				s := roles[k].Candidates[ci].Span
				v := h.value.Mul(logd.Exp(obj[k][ci]))
				if span.AnyOverlap(s, h.spans) || span.AnyOverlap(s, committed) {
					v = logd.Zero
				}
				next = append(next, hypothesis{
					picks: append(append(make([]int, 0, k+1), h.picks...), ci),
					spans: append(append(make([]span.Span, 0, k+1), h.spans...), s),
					value: v,
				})
			}
		}
		sortHypotheses(next)
		if len(next) > beam {
			next = next[:beam]
		}
		hyps = next
	}

	if len(hyps) == 0 || hyps[0].value.IsZero() {
		out := make([]int, len(roles))
		for i, r := range roles {
			out[i] = r.NullIndex()
		}
		return out, false
	}
	return hyps[0].picks, true
}

// sortHypotheses orders by value, highest first, keeping insertion order on ties.
func sortHypotheses(hyps []hypothesis) {
	sort.SliceStable(hyps, func(i, j int) bool {
		return hyps[i].value.Greater(hyps[j].value)
	})
}

// #endregion merge

// #region helpers
// splitObjective cuts a flattened objective into per-role slices, defaulting
// to the candidate scores.
func splitObjective(inst *frame.Instance, objective []float64) ([][]float64, error) {
	if objective != nil && len(objective) != inst.CandidateCount() {
		return nil, fmt.Errorf("%w: objective has %d entries for %d candidates",
			frame.ErrMalformedInput, len(objective), inst.CandidateCount())
	}
	out := make([][]float64, len(inst.Roles))
	off := 0
	for ri, r := range inst.Roles {
		if objective != nil {
			out[ri] = objective[off : off+len(r.Candidates)]
		} else {
			out[ri] = make([]float64, len(r.Candidates))
			for ci, c := range r.Candidates {
				out[ri][ci] = c.Score
			}
		}
		off += len(r.Candidates)
	}
	return out, nil
}

// argmax returns the first index of the largest value.
func argmax(vals []float64) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}

// ranked returns candidate indices by descending value, stable on ties.
func ranked(vals []float64) []int {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return vals[idx[a]] > vals[idx[b]] })
	return idx
}

func choice(r frame.Role, ci int) frame.Choice {
	if ci < 0 {
		return frame.Choice{Role: r.Name, Span: span.Null}
	}
	c := r.Candidates[ci]
	return frame.Choice{Role: r.Name, Span: c.Span, Score: c.Score}
}

// #endregion helpers
