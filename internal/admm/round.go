package admm

import (
	"sort"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/span"
)

// fractionalEpsilon is how close to 0 or 1 a relaxed indicator must be to count as integral.
const fractionalEpsilon = 1e-6

// #region round
// round turns the relaxed solution into an assignment: each role takes its
// candidate with the largest u (ties by raw score), then conflicting picks are
// replaced in descending score order by the role's best candidate that does
// not overlap anything already kept. Returns the number of replaced roles.
func round(inst *frame.Instance, l layout, u []float64) (frame.Assignment, int) {
	picks := make([]int, len(inst.Roles)) // candidate index per role, -1 for unfilled
	for ri, r := range inst.Roles {
		picks[ri] = pick(r, u[l.offsets[ri]:l.offsets[ri]+len(r.Candidates)], nil)
	}

	order := make([]int, len(inst.Roles))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pickScore(inst.Roles[order[a]], picks[order[a]]) > pickScore(inst.Roles[order[b]], picks[order[b]])
	})

	var kept []span.Span
	repaired := 0
	for _, ri := range order {
		r := inst.Roles[ri]
		s := pickSpan(r, picks[ri])
		if span.AnyOverlap(s, kept) {
			ur := u[l.offsets[ri] : l.offsets[ri]+len(r.Candidates)]
			picks[ri] = pick(r, ur, func(c frame.Candidate) bool { return !span.AnyOverlap(c.Span, kept) })
			s = pickSpan(r, picks[ri])
			repaired++
		}
		if !s.IsNull() {
			kept = append(kept, s)
		}
	}

	a := make(frame.Assignment, len(inst.Roles))
	for ri, r := range inst.Roles {
		a[ri] = frame.Choice{Role: r.Name, Span: pickSpan(r, picks[ri]), Score: pickScore(r, picks[ri])}
	}
	return a, repaired
}

// pick returns the allowed candidate with the largest u, ties broken by
// score. When nothing allowed carries mass the role falls back to its sentinel
// candidate, or -1 when it has none.
func pick(r frame.Role, u []float64, allowed func(frame.Candidate) bool) int {
	best := -1
	for ci, c := range r.Candidates {
		if allowed != nil && !allowed(c) {
			continue
		}
		if best < 0 || u[ci] > u[best] || (u[ci] == u[best] && c.Score > r.Candidates[best].Score) {
			best = ci
		}
	}
	if best < 0 || u[best] <= fractionalEpsilon {
		return r.NullIndex()
	}
	return best
}

func pickSpan(r frame.Role, ci int) span.Span {
	if ci < 0 {
		return span.Null
	}
	return r.Candidates[ci].Span
}

func pickScore(r frame.Role, ci int) float64 {
	if ci < 0 {
		return 0
	}
	return r.Candidates[ci].Score
}

// #endregion round
