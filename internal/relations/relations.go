package relations

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/span"
	"gopkg.in/yaml.v3"
)

// #region table
// Table is a read-only set of per-frame role relations, loaded once and
// shared by every decode.
type Table struct {
	frames map[string]FrameRelations
}

// NewTable builds a table from already-parsed relations.
func NewTable(frames map[string]FrameRelations) *Table {
	return &Table{frames: frames}
}

// Load reads a YAML relation table from disk.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open relations %s: %w", path, err)
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("relations %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a YAML relation table.
func Parse(r io.Reader) (*Table, error) {
	var ff fileFormat
	if err := yaml.NewDecoder(r).Decode(&ff); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", frame.ErrMalformedInput, err)
	}
	frames := make(map[string]FrameRelations, len(ff.Frames))
	for name, fr := range ff.Frames {
		var rel FrameRelations
		for _, p := range fr.Excludes {
			pair, err := toPair(name, "excludes", p)
			if err != nil {
				return nil, err
			}
			rel.Excludes = append(rel.Excludes, pair)
		}
		for _, p := range fr.Requires {
			pair, err := toPair(name, "requires", p)
			if err != nil {
				return nil, err
			}
			rel.Requires = append(rel.Requires, pair)
		}
		frames[name] = rel
	}
	return &Table{frames: frames}, nil
}

func toPair(frameName, kind string, p []string) (Pair, error) {
	if len(p) != 2 || p[0] == "" || p[1] == "" || p[0] == p[1] {
		return Pair{}, fmt.Errorf("%w: frame %s %s entry %v is not a pair of distinct roles",
			frame.ErrMalformedInput, frameName, kind, p)
	}
	return Pair{First: p[0], Second: p[1]}, nil
}

// For returns the relations of a frame; a nil table has none.
func (t *Table) For(frameName string) FrameRelations {
	if t == nil {
		return FrameRelations{}
	}
	return t.frames[frameName]
}

// Frames lists the frames with declared relations, sorted.
func (t *Table) Frames() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.frames))
	for name := range t.frames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// #endregion table

// #region check
// Check reports every relation the assignment breaks.
func (t *Table) Check(frameName string, a frame.Assignment) []Violation {
	rel := t.For(frameName)
	var violations []Violation

	for _, p := range rel.Excludes {
		first, ok1 := a.Get(p.First)
		second, ok2 := a.Get(p.Second)
		if ok1 && ok2 && !first.Span.IsNull() && !second.Span.IsNull() {
			violations = append(violations, Violation{
				Type:   ViolationExcludes,
				First:  p.First,
				Second: p.Second,
				Reason: fmt.Sprintf("%s and %s are both filled", p.First, p.Second),
			})
		}
	}

	for _, p := range rel.Requires {
		first, ok1 := a.Get(p.First)
		second, ok2 := a.Get(p.Second)
		if !ok1 || first.Span.IsNull() || !ok2 {
			continue
		}
		if second.Span.IsNull() {
			violations = append(violations, Violation{
				Type:   ViolationRequires,
				First:  p.First,
				Second: p.Second,
				Reason: fmt.Sprintf("%s is filled but %s is not", p.First, p.Second),
			})
		}
	}
	return violations
}

// #endregion check

// #region repair
// Repair rewrites a so that it satisfies every relation while keeping the
// spans pairwise non-overlapping. An excludes violation unfills the lower
// scoring role; a requires violation either unfills First or fills Second
// with its best non-overlapping candidate, whichever loses less score. Each
// role is filled at most once, and any violation still open after that is
// resolved by unfilling, so the result always passes Check.
// Returns the repaired assignment and the distinct violations it resolved.
func (t *Table) Repair(inst *frame.Instance, a frame.Assignment) (frame.Assignment, []Violation) {
	out := make(frame.Assignment, len(a))
	copy(out, a)

	var fixed []Violation
	seen := make(map[Pair]ViolationType)
	record := func(v Violation) {
		p := Pair{First: v.First, Second: v.Second}
		if typ, ok := seen[p]; ok && typ == v.Type {
			return
		}
		seen[p] = v.Type
		fixed = append(fixed, v)
	}

	// every step either unfills a role or fills one never filled before
	filledOnce := make(map[string]bool)
	for step := 0; step <= 3*len(inst.Roles); step++ {
		violations := t.Check(inst.Frame, out)
		if len(violations) == 0 {
			return out, fixed
		}
		v := violations[0]
		record(v)
		switch v.Type {
		case ViolationExcludes:
			out = t.dropLower(inst, out, v)
		case ViolationRequires:
			var filled bool
			out, filled = t.repairRequires(inst, out, v, filledOnce[v.Second])
			if filled {
				filledOnce[v.Second] = true
			}
		}
	}

	// unfilling only; each step empties one role, so this ends
	for {
		violations := t.Check(inst.Frame, out)
		if len(violations) == 0 {
			return out, fixed
		}
		v := violations[0]
		record(v)
		if v.Type == ViolationExcludes {
			out = t.dropLower(inst, out, v)
		} else {
			out = unfill(inst, out, v.First)
		}
	}
}

func (t *Table) dropLower(inst *frame.Instance, a frame.Assignment, v Violation) frame.Assignment {
	first, _ := a.Get(v.First)
	second, _ := a.Get(v.Second)
	if first.Score < second.Score {
		return unfill(inst, a, v.First)
	}
	return unfill(inst, a, v.Second)
}

// repairRequires resolves one requires violation and reports whether it did
// so by filling Second. Second is only filled when it was not filled by an
// earlier repair, clashes with no excludes relation and has every role it
// requires already filled.
func (t *Table) repairRequires(inst *frame.Instance, a frame.Assignment, v Violation, refilled bool) (frame.Assignment, bool) {
	first, _ := a.Get(v.First)
	dropLoss := first.Score - NullChoice(inst, v.First).Score

	// spans held by every role except Second
	var taken []span.Span
	for _, c := range a.Filled() {
		if c.Role != v.Second {
			taken = append(taken, c.Span)
		}
	}
	role, ok := findRole(inst, v.Second)
	if ok && !refilled && !t.wouldExclude(inst.Frame, a, v.Second) && t.requirementsMet(inst.Frame, a, v.Second) {
		nullScore := NullChoice(inst, v.Second).Score
		bestIdx := -1
		for ci, c := range role.Candidates {
			if c.Span.IsNull() || span.AnyOverlap(c.Span, taken) {
				continue
			}
			if bestIdx < 0 || c.Score > role.Candidates[bestIdx].Score {
				bestIdx = ci
			}
		}
		if bestIdx >= 0 && nullScore-role.Candidates[bestIdx].Score < dropLoss {
			c := role.Candidates[bestIdx]
			return set(a, frame.Choice{Role: v.Second, Span: c.Span, Score: c.Score}), true
		}
	}
	return unfill(inst, a, v.First), false
}

// requirementsMet reports whether every role that role requires is filled.
func (t *Table) requirementsMet(frameName string, a frame.Assignment, role string) bool {
	for _, p := range t.For(frameName).Requires {
		if p.First != role {
			continue
		}
		if c, ok := a.Get(p.Second); ok && c.Span.IsNull() {
			return false
		}
	}
	return true
}

// wouldExclude reports whether filling role would clash with an excludes
// relation against an already filled role.
func (t *Table) wouldExclude(frameName string, a frame.Assignment, role string) bool {
	for _, p := range t.For(frameName).Excludes {
		other := ""
		switch role {
		case p.First:
			other = p.Second
		case p.Second:
			other = p.First
		default:
			continue
		}
		if c, ok := a.Get(other); ok && !c.Span.IsNull() {
			return true
		}
	}
	return false
}

// #endregion repair

// #region helpers
func findRole(inst *frame.Instance, name string) (frame.Role, bool) {
	for _, r := range inst.Roles {
		if r.Name == name {
			return r, true
		}
	}
	return frame.Role{}, false
}

// NullChoice is the unfilled choice for a role, carrying the sentinel
// candidate's score when the role has one.
func NullChoice(inst *frame.Instance, name string) frame.Choice {
	ch := frame.Choice{Role: name, Span: span.Null}
	if r, ok := findRole(inst, name); ok {
		if i := r.NullIndex(); i >= 0 {
			ch.Score = r.Candidates[i].Score
		}
	}
	return ch
}

func unfill(inst *frame.Instance, a frame.Assignment, role string) frame.Assignment {
	return set(a, NullChoice(inst, role))
}

func set(a frame.Assignment, ch frame.Choice) frame.Assignment {
	for i := range a {
		if a[i].Role == ch.Role {
			a[i] = ch
		}
	}
	return a
}

// #endregion helpers
