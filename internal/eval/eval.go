package eval

import (
	"fmt"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/span"
)

// #region eval-harness
// EvalHarness validates decoded assignments: structural checks always block,
// gold F1 blocks only when MinF1 is set.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks a against inst and, when inst carries gold, scores it.
func (h *EvalHarness) Run(inst *frame.Instance, a frame.Assignment) EvalResult {
	var metrics []EvalMetric
	var failReasons []string
	check := func(name string, value float64, pass bool, reason string) {
		metrics = append(metrics, EvalMetric{Name: name, Value: value, Pass: pass})
		if !pass {
			failReasons = append(failReasons, reason)
		}
	}

	// 1. One choice per role, in role order
	complete := len(a) == len(inst.Roles)
	for i := 0; complete && i < len(a); i++ {
		complete = a[i].Role == inst.Roles[i].Name
	}
	check("complete", boolValue(complete), complete, "assignment does not cover the roles in order")

	// 2. Filled spans pairwise disjoint
	overlaps := overlappingPairs(a)
	check("overlapping_pairs", float64(overlaps), overlaps == 0,
		fmt.Sprintf("%d overlapping filler pairs", overlaps))

	// 3. Every filled span is one of its role's candidates
	foreign := foreignChoices(inst, a)
	check("foreign_choices", float64(foreign), foreign == 0,
		fmt.Sprintf("%d choices are not candidates of their role", foreign))

	// 4. Gold agreement, informational unless MinF1 > 0
	var counts Counts
	if len(inst.Gold) > 0 {
		counts = Score(inst, a)
		f1 := counts.F1()
		metrics = append(metrics,
			EvalMetric{Name: "precision", Value: counts.Precision(), Pass: true},
			EvalMetric{Name: "recall", Value: counts.Recall(), Pass: true},
		)
		check("f1", f1, f1 >= h.config.MinF1, fmt.Sprintf("f1 %.4f below %.4f", f1, h.config.MinF1))
	}

	reason := "all checks passed"
	if len(failReasons) == 1 {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
	} else if len(failReasons) > 1 {
		reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
	}
	return EvalResult{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Counts:  counts,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region scoring
// Score counts role-level matches of a against inst.Gold. Roles missing
// from gold are treated as unfilled.
func Score(inst *frame.Instance, a frame.Assignment) Counts {
	var c Counts
	for _, r := range inst.Roles {
		gold, ok := inst.Gold[r.Name]
		if !ok {
			gold = span.Null
		}
		if !gold.IsNull() {
			c.Gold++
		}
		ch, ok := a.Get(r.Name)
		if !ok || ch.Span.IsNull() {
			continue
		}
		c.Predicted++
		if ch.Span == gold {
			c.Correct++
		}
	}
	return c
}

// #endregion scoring

// #region helpers
func overlappingPairs(a frame.Assignment) int {
	filled := a.Filled()
	n := 0
	for i := range filled {
		for j := i + 1; j < len(filled); j++ {
			if span.Overlaps(filled[i].Span, filled[j].Span) {
				n++
			}
		}
	}
	return n
}

func foreignChoices(inst *frame.Instance, a frame.Assignment) int {
	n := 0
	for _, ch := range a.Filled() {
		found := false
		for _, r := range inst.Roles {
			if r.Name != ch.Role {
				continue
			}
			for _, c := range r.Candidates {
				if c.Span == ch.Span {
					found = true
					break
				}
			}
		}
		if !found {
			n++
		}
	}
	return n
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
