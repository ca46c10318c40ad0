package admm

import (
	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/graph"
	"github.com/danielpatrickdp/argument-decoder/internal/relations"
	"github.com/danielpatrickdp/argument-decoder/internal/slave"
	"github.com/danielpatrickdp/argument-decoder/internal/span"
)

// #region layout
// layout maps the flattened (role, candidate) index space.
type layout struct {
	offsets []int // first global index of each role
	owner   []int // role of each global index
	spans   []span.Span
	scores  []float64
}

func newLayout(inst *frame.Instance) layout {
	n := inst.CandidateCount()
	l := layout{
		offsets: make([]int, len(inst.Roles)),
		owner:   make([]int, 0, n),
		spans:   make([]span.Span, 0, n),
		scores:  make([]float64, 0, n),
	}
	for ri, r := range inst.Roles {
		l.offsets[ri] = len(l.owner)
		for _, c := range r.Candidates {
			l.owner = append(l.owner, ri)
			l.spans = append(l.spans, c.Span)
			l.scores = append(l.scores, c.Score)
		}
	}
	return l
}

func (l layout) size() int { return len(l.owner) }

// #endregion layout

// #region build
// buildFactors creates one uniqueness slave per role, one overlap slave per
// maximal clique of cross-role overlapping candidates and one exclusion
// slave per applicable excludes relation.
func buildFactors(inst *frame.Instance, l layout, rel relations.FrameRelations, tol float64) []slave.Slave {
	var slaves []slave.Slave

	for ri, r := range inst.Roles {
		idx := make([]int, len(r.Candidates))
		for ci := range r.Candidates {
			idx[ci] = l.offsets[ri] + ci
		}
		slaves = append(slaves, slave.NewUniqueness(r.Name, idx, tol))
	}

	g := graph.New(l.size())
	for i := 0; i < l.size(); i++ {
		if l.spans[i].IsNull() {
			continue
		}
		for j := i + 1; j < l.size(); j++ {
			if l.owner[i] == l.owner[j] || l.spans[j].IsNull() {
				continue
			}
			if span.Overlaps(l.spans[i], l.spans[j]) {
				g.AddEdge(i, j)
			}
		}
	}
	for _, clique := range g.MaximalCliques(2) {
		roles := make([]string, len(clique))
		for k, i := range clique {
			roles[k] = inst.Roles[l.owner[i]].Name
		}
		slaves = append(slaves, slave.NewOverlap(roles, clique, tol))
	}

	for _, p := range rel.Excludes {
		first, ok1 := roleIndex(inst, p.First)
		second, ok2 := roleIndex(inst, p.Second)
		if !ok1 || !ok2 {
			continue
		}
		a, b := realIndices(inst, l, first), realIndices(inst, l, second)
		if len(a) == 0 || len(b) == 0 {
			continue
		}
		slaves = append(slaves, slave.NewExclusion(p.First, p.Second, append(a, b...), tol))
	}
	return slaves
}

func roleIndex(inst *frame.Instance, name string) (int, bool) {
	for ri, r := range inst.Roles {
		if r.Name == name {
			return ri, true
		}
	}
	return -1, false
}

// realIndices lists the global indices of a role's non-sentinel candidates.
func realIndices(inst *frame.Instance, l layout, ri int) []int {
	var out []int
	for ci, c := range inst.Roles[ri].Candidates {
		if !c.Span.IsNull() {
			out = append(out, l.offsets[ri]+ci)
		}
	}
	return out
}

// #endregion build
