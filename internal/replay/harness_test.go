package replay

import (
	"context"
	"testing"

	"github.com/danielpatrickdp/argument-decoder/internal/decoder"
	"github.com/danielpatrickdp/argument-decoder/internal/eval"
	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/span"
)

// helper: prescored instance with two roles that do not interact.
func independentInstance() *frame.Instance {
	return &frame.Instance{
		Frame:  "Arriving",
		Target: frame.Target{Tokens: "1", Words: "came", Sentence: 5},
		Roles: []frame.Role{
			{Name: "Theme", Candidates: []frame.Candidate{{Span: span.New(0, 0), Score: 1}, {Span: span.Null}}},
			{Name: "Goal", Candidates: []frame.Candidate{{Span: span.New(2, 3), Score: 1}, {Span: span.Null}}},
		},
		Prescored: true,
	}
}

// 1. Independent roles: both modes fill everything and agree.
func TestReplay_IndependentRolesAgree(t *testing.T) {
	results, err := Replay(context.Background(), []*frame.Instance{independentInstance()}, nil, DefaultReplayConfig(), nil, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	r := results[0]
	if !r.Agree {
		t.Fatalf("expected agreement, got %+v", r.Modes)
	}
	want := "0\t3\tArriving\t1\tcame\t5\tTheme\t0\tGoal\t2:3"
	if r.Modes[decoder.ModeCube].Line != want {
		t.Errorf("cube line %q", r.Modes[decoder.ModeCube].Line)
	}
	if r.Modes[decoder.ModeADMM].Eval == nil || !r.Modes[decoder.ModeADMM].Eval.Passed {
		t.Error("expected admm eval to pass")
	}
}

// 2. Canceled context: every instance carries the cancellation outcome.
func TestReplay_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := Replay(ctx, []*frame.Instance{independentInstance()}, nil, DefaultReplayConfig(), nil, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if got := results[0].Modes[decoder.ModeCube].Outcome; got != "canceled" {
		t.Fatalf("expected canceled outcome, got %s", got)
	}
}

// 3. Summary arithmetic over hand-built results.
func TestSummarize(t *testing.T) {
	pass := &eval.EvalResult{Passed: true, Counts: eval.Counts{Correct: 1, Predicted: 1, Gold: 2}}
	fail := &eval.EvalResult{Passed: false}
	results := []ReplayResult{
		{Agree: true, Modes: map[decoder.Mode]ModeOutcome{decoder.ModeCube: {Eval: pass}, decoder.ModeADMM: {Eval: pass}}},
		{Agree: false, Modes: map[decoder.Mode]ModeOutcome{decoder.ModeCube: {Eval: fail}, decoder.ModeADMM: {Outcome: "malformed"}}},
	}

	s := Summarize(results)

	if s.Total != 2 || s.Agreements != 1 || s.Failures != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.AgreementRate() != 0.5 {
		t.Fatalf("agreement rate %v", s.AgreementRate())
	}
	if s.EvalFailures[decoder.ModeCube] != 1 {
		t.Fatalf("expected one cube eval failure, got %d", s.EvalFailures[decoder.ModeCube])
	}
	if s.Counts[decoder.ModeADMM].Gold != 2 {
		t.Fatalf("unexpected admm counts %+v", s.Counts[decoder.ModeADMM])
	}
}

// 4. Compare reports wrong lines, wrong outcomes and missing indices.
func TestCompare(t *testing.T) {
	results := []ReplayResult{{
		Modes: map[decoder.Mode]ModeOutcome{
			decoder.ModeCube: {Line: "a", Outcome: "ok"},
			decoder.ModeADMM: {Line: "b", Outcome: "ok"},
		},
	}}
	mismatches := Compare(results, []FixtureExpected{
		{Index: 0, Line: "a"},
		{Index: 0, Outcome: "infeasible"},
		{Index: 3, Line: "x"},
	})
	if len(mismatches) != 4 {
		t.Fatalf("expected 4 mismatches, got %d: %v", len(mismatches), mismatches)
	}
	if mismatches[0].Mode != decoder.ModeADMM || mismatches[0].Got != "b" {
		t.Fatalf("unexpected first mismatch %+v", mismatches[0])
	}
}
