package relations

import (
	"errors"
	"strings"
	"testing"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/span"
)

const sampleTable = `
frames:
  Motion:
    excludes:
      - [Agent, Cause]
    requires:
      - [Path, Theme]
`

func cand(start, end int, score float64) frame.Candidate {
	return frame.Candidate{Span: span.New(start, end), Score: score}
}

func mustParse(t *testing.T, doc string) *Table {
	t.Helper()
	tbl, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return tbl
}

func TestParseTable(t *testing.T) {
	tbl := mustParse(t, sampleTable)
	rel := tbl.For("Motion")
	if len(rel.Excludes) != 1 || rel.Excludes[0] != (Pair{First: "Agent", Second: "Cause"}) {
		t.Fatalf("unexpected excludes: %+v", rel.Excludes)
	}
	if len(rel.Requires) != 1 || rel.Requires[0] != (Pair{First: "Path", Second: "Theme"}) {
		t.Fatalf("unexpected requires: %+v", rel.Requires)
	}
	if got := tbl.For("Commerce"); len(got.Excludes)+len(got.Requires) != 0 {
		t.Fatalf("unknown frame should have no relations, got %+v", got)
	}
	if frames := tbl.Frames(); len(frames) != 1 || frames[0] != "Motion" {
		t.Fatalf("unexpected frames %v", frames)
	}
}

func TestParseRejectsBadPair(t *testing.T) {
	_, err := Parse(strings.NewReader("frames:\n  Motion:\n    excludes:\n      - [Agent]\n"))
	if !errors.Is(err, frame.ErrMalformedInput) {
		t.Fatalf("expected malformed input, got %v", err)
	}
	_, err = Parse(strings.NewReader("frames:\n  Motion:\n    requires:\n      - [Agent, Agent]\n"))
	if !errors.Is(err, frame.ErrMalformedInput) {
		t.Fatalf("expected malformed input for self pair, got %v", err)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	tbl := mustParse(t, "")
	if len(tbl.Frames()) != 0 {
		t.Fatalf("expected empty table")
	}
}

func TestNilTableHasNoViolations(t *testing.T) {
	var tbl *Table
	a := frame.Assignment{
		{Role: "Agent", Span: span.New(0, 0)},
		{Role: "Cause", Span: span.New(2, 2)},
	}
	if v := tbl.Check("Motion", a); len(v) != 0 {
		t.Fatalf("nil table reported %v", v)
	}
}

func TestCheckExcludes(t *testing.T) {
	tbl := mustParse(t, sampleTable)
	a := frame.Assignment{
		{Role: "Agent", Span: span.New(0, 0), Score: 2},
		{Role: "Cause", Span: span.New(2, 2), Score: 1},
	}
	v := tbl.Check("Motion", a)
	if len(v) != 1 || v[0].Type != ViolationExcludes {
		t.Fatalf("expected one excludes violation, got %+v", v)
	}

	a[1].Span = span.Null
	if v := tbl.Check("Motion", a); len(v) != 0 {
		t.Fatalf("unfilled Cause should satisfy excludes, got %+v", v)
	}
}

func TestCheckRequires(t *testing.T) {
	tbl := mustParse(t, sampleTable)
	a := frame.Assignment{
		{Role: "Path", Span: span.New(1, 2)},
		{Role: "Theme", Span: span.Null},
	}
	v := tbl.Check("Motion", a)
	if len(v) != 1 || v[0].Type != ViolationRequires {
		t.Fatalf("expected one requires violation, got %+v", v)
	}
	if v[0].First != "Path" || v[0].Second != "Theme" {
		t.Fatalf("unexpected pair %+v", v[0])
	}
}

func TestRepairExcludesDropsLowerScore(t *testing.T) {
	tbl := mustParse(t, sampleTable)
	inst := &frame.Instance{
		Frame: "Motion",
		Roles: []frame.Role{
			{Name: "Agent", Candidates: []frame.Candidate{cand(0, 0, 2), cand(-1, -1, 0.1)}},
			{Name: "Cause", Candidates: []frame.Candidate{cand(2, 2, 1), cand(-1, -1, 0.3)}},
		},
	}
	a := frame.Assignment{
		{Role: "Agent", Span: span.New(0, 0), Score: 2},
		{Role: "Cause", Span: span.New(2, 2), Score: 1},
	}
	out, fixed := tbl.Repair(inst, a)
	if len(fixed) != 1 {
		t.Fatalf("expected one fix, got %+v", fixed)
	}
	cause, _ := out.Get("Cause")
	if !cause.Span.IsNull() || cause.Score != 0.3 {
		t.Fatalf("Cause should fall back to its sentinel, got %+v", cause)
	}
	agent, _ := out.Get("Agent")
	if agent.Span != span.New(0, 0) {
		t.Fatalf("Agent should be kept, got %+v", agent)
	}
	// input untouched
	if a[1].Span != span.New(2, 2) {
		t.Fatal("repair mutated its input")
	}
}

func TestRepairRequiresFillsSecond(t *testing.T) {
	tbl := mustParse(t, sampleTable)
	inst := &frame.Instance{
		Frame: "Motion",
		Roles: []frame.Role{
			{Name: "Path", Candidates: []frame.Candidate{cand(0, 0, 3), cand(-1, -1, 0)}},
			{Name: "Theme", Candidates: []frame.Candidate{cand(0, 1, 4), cand(2, 2, 1), cand(-1, -1, 0.5)}},
		},
	}
	a := frame.Assignment{
		{Role: "Path", Span: span.New(0, 0), Score: 3},
		{Role: "Theme", Span: span.Null, Score: 0.5},
	}
	out, _ := tbl.Repair(inst, a)
	theme, _ := out.Get("Theme")
	if theme.Span != span.New(2, 2) {
		t.Fatalf("Theme should take its best non-overlapping candidate, got %+v", theme)
	}
	if !out.Consistent() {
		t.Fatal("repair produced overlapping fillers")
	}
	if v := tbl.Check("Motion", out); len(v) != 0 {
		t.Fatalf("violations remain: %+v", v)
	}
}

func TestRepairRequiresDropsFirst(t *testing.T) {
	tbl := mustParse(t, sampleTable)
	inst := &frame.Instance{
		Frame: "Motion",
		Roles: []frame.Role{
			{Name: "Path", Candidates: []frame.Candidate{cand(0, 0, 3), cand(-1, -1, 0.2)}},
			{Name: "Theme", Candidates: []frame.Candidate{cand(0, 1, 4), cand(-1, -1, 0.5)}},
		},
	}
	a := frame.Assignment{
		{Role: "Path", Span: span.New(0, 0), Score: 3},
		{Role: "Theme", Span: span.Null, Score: 0.5},
	}
	out, _ := tbl.Repair(inst, a)
	path, _ := out.Get("Path")
	if !path.Span.IsNull() || path.Score != 0.2 {
		t.Fatalf("Path should be dropped, got %+v", path)
	}
}

const chainTable = `
frames:
  Motion:
    requires:
      - [Agent, Path]
      - [Path, Goal]
`

func TestRepairRequiresChainWithUnfillableTail(t *testing.T) {
	tbl := mustParse(t, chainTable)
	inst := &frame.Instance{
		Frame: "Motion",
		Roles: []frame.Role{
			{Name: "Agent", Candidates: []frame.Candidate{cand(0, 0, 10), cand(-1, -1, 0)}},
			{Name: "Path", Candidates: []frame.Candidate{cand(2, 3, 5), cand(-1, -1, 0)}},
			{Name: "Goal", Candidates: []frame.Candidate{cand(-1, -1, 0)}},
		},
	}
	a := frame.Assignment{
		{Role: "Agent", Span: span.New(0, 0), Score: 10},
		{Role: "Path", Span: span.Null},
		{Role: "Goal", Span: span.Null},
	}
	out, fixed := tbl.Repair(inst, a)
	if v := tbl.Check("Motion", out); len(v) != 0 {
		t.Fatalf("violations remain: %+v (out %+v)", v, out)
	}
	for _, c := range out {
		if !c.Span.IsNull() {
			t.Fatalf("no role can be filled without breaking the chain, got %+v", out)
		}
	}
	if len(fixed) != 1 || fixed[0].First != "Agent" || fixed[0].Second != "Path" {
		t.Fatalf("expected only Agent->Path reported, got %+v", fixed)
	}
}

func TestRepairRequiresChainWithFilledTail(t *testing.T) {
	tbl := mustParse(t, chainTable)
	inst := &frame.Instance{
		Frame: "Motion",
		Roles: []frame.Role{
			{Name: "Agent", Candidates: []frame.Candidate{cand(0, 0, 10), cand(-1, -1, 0)}},
			{Name: "Path", Candidates: []frame.Candidate{cand(2, 3, 5), cand(-1, -1, 0)}},
			{Name: "Goal", Candidates: []frame.Candidate{cand(5, 5, 2), cand(-1, -1, 0)}},
		},
	}
	a := frame.Assignment{
		{Role: "Agent", Span: span.New(0, 0), Score: 10},
		{Role: "Path", Span: span.Null},
		{Role: "Goal", Span: span.New(5, 5), Score: 2},
	}
	out, fixed := tbl.Repair(inst, a)
	if v := tbl.Check("Motion", out); len(v) != 0 {
		t.Fatalf("violations remain: %+v", v)
	}
	path, _ := out.Get("Path")
	if path.Span != span.New(2, 3) {
		t.Fatalf("Path should be filled, got %+v", path)
	}
	if len(fixed) != 1 {
		t.Fatalf("expected one fix, got %+v", fixed)
	}
}

func TestRepairAlwaysEndsClean(t *testing.T) {
	tbl := mustParse(t, `
frames:
  Motion:
    excludes:
      - [Agent, Cause]
    requires:
      - [Agent, Path]
      - [Path, Goal]
      - [Goal, Agent]
      - [Cause, Goal]
`)
	roles := []frame.Role{
		{Name: "Agent", Candidates: []frame.Candidate{cand(0, 0, 4), cand(-1, -1, 0)}},
		{Name: "Cause", Candidates: []frame.Candidate{cand(1, 1, 3), cand(-1, -1, 0)}},
		{Name: "Path", Candidates: []frame.Candidate{cand(0, 1, 6), cand(2, 2, 1), cand(-1, -1, 0)}},
		{Name: "Goal", Candidates: []frame.Candidate{cand(2, 3, 2), cand(-1, -1, 0)}},
	}
	inst := &frame.Instance{Frame: "Motion", Roles: roles}

	// every filled/unfilled combination of first candidates
	for mask := 0; mask < 1<<len(roles); mask++ {
		a := make(frame.Assignment, len(roles))
		for i, r := range roles {
			a[i] = frame.Choice{Role: r.Name, Span: span.Null}
			if mask&(1<<i) != 0 {
				a[i] = frame.Choice{Role: r.Name, Span: r.Candidates[0].Span, Score: r.Candidates[0].Score}
			}
		}
		out, _ := tbl.Repair(inst, a)
		if v := tbl.Check("Motion", out); len(v) != 0 {
			t.Fatalf("mask %b: violations remain: %+v (out %+v)", mask, v, out)
		}
	}
}
