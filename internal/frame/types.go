package frame

import (
	"fmt"

	"github.com/danielpatrickdp/argument-decoder/internal/span"
)

// #region candidate
// Candidate is one scored filler for a role. Features holds raw feature
// indices; an index repeated k times contributes k times to the score.
type Candidate struct {
	Span     span.Span
	Features []int
	Score    float64
}

// #endregion candidate

// #region role
// Role is a frame element with its candidate fillers in upstream order.
type Role struct {
	Name       string
	Candidates []Candidate
}

// Best returns the index of the highest scoring candidate, first one wins ties.
// Returns -1 when the role has no candidates.
func (r Role) Best() int {
	best := -1
	for i, c := range r.Candidates {
		if best < 0 || c.Score > r.Candidates[best].Score {
			best = i
		}
	}
	return best
}

// NullIndex returns the position of the sentinel candidate, or -1.
func (r Role) NullIndex() int {
	for i, c := range r.Candidates {
		if c.Span.IsNull() {
			return i
		}
	}
	return -1
}

// #endregion role

// #region instance
// Target carries the positional metadata needed only to format output.
type Target struct {
	Tokens   string // target token indices as emitted upstream, e.g. "3" or "3_4"
	Words    string
	Sentence int
}

// Instance is one recognized frame in one sentence.
type Instance struct {
	Frame  string
	Target Target
	Roles  []Role

	// Gold is consulted only for cost-augmented decoding and evaluation.
	Gold map[string]span.Span

	// Prescored is true when every candidate arrived with an upstream score.
	Prescored bool
}

// Validate checks the shape invariants every decoder relies on.
func (in *Instance) Validate() error {
	if in.Frame == "" {
		return fmt.Errorf("%w: empty frame name", ErrMalformedInput)
	}
	seen := make(map[string]bool, len(in.Roles))
	for _, r := range in.Roles {
		if r.Name == "" {
			return fmt.Errorf("%w: frame %s has an unnamed role", ErrMalformedInput, in.Frame)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: frame %s repeats role %s", ErrMalformedInput, in.Frame, r.Name)
		}
		seen[r.Name] = true
		if len(r.Candidates) == 0 {
			return fmt.Errorf("%w: role %s of frame %s", ErrInfeasibleCandidateSet, r.Name, in.Frame)
		}
		for _, c := range r.Candidates {
			if !c.Span.Valid() {
				return fmt.Errorf("%w: role %s has invalid span %v", ErrMalformedInput, r.Name, c.Span)
			}
		}
	}
	return nil
}

// CandidateCount is the total number of (role, candidate) pairs.
func (in *Instance) CandidateCount() int {
	n := 0
	for _, r := range in.Roles {
		n += len(r.Candidates)
	}
	return n
}

// Clone copies the roles and candidates so scores can be rewritten without
// touching the caller's instance. Feature slices are shared read-only.
func (in *Instance) Clone() *Instance {
	out := *in
	out.Roles = make([]Role, len(in.Roles))
	for i, r := range in.Roles {
		cands := make([]Candidate, len(r.Candidates))
		copy(cands, r.Candidates)
		out.Roles[i] = Role{Name: r.Name, Candidates: cands}
	}
	return &out
}

// #endregion instance

// #region assignment
// Choice is the filler picked for one role; Span is span.Null when unfilled.
type Choice struct {
	Role  string
	Span  span.Span
	Score float64
}

// Assignment lists one choice per role in the instance's role order.
type Assignment []Choice

// Get looks up the choice for a role.
func (a Assignment) Get(role string) (Choice, bool) {
	for _, c := range a {
		if c.Role == role {
			return c, true
		}
	}
	return Choice{}, false
}

// Filled returns the choices with a real span, in role order.
func (a Assignment) Filled() []Choice {
	var out []Choice
	for _, c := range a {
		if !c.Span.IsNull() {
			out = append(out, c)
		}
	}
	return out
}

// Total sums the scores of all choices, unfilled ones included.
func (a Assignment) Total() float64 {
	var sum float64
	for _, c := range a {
		sum += c.Score
	}
	return sum
}

// AverageScore averages the scores over filled roles; zero when none are filled.
func (a Assignment) AverageScore() float64 {
	filled := a.Filled()
	if len(filled) == 0 {
		return 0
	}
	var sum float64
	for _, c := range filled {
		sum += c.Score
	}
	return sum / float64(len(filled))
}

// Consistent reports whether no two filled roles overlap.
func (a Assignment) Consistent() bool {
	filled := a.Filled()
	for i := range filled {
		for j := i + 1; j < len(filled); j++ {
			if span.Overlaps(filled[i].Span, filled[j].Span) {
				return false
			}
		}
	}
	return true
}

// #endregion assignment
