package replay

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/argument-decoder/internal/decoder"
	"github.com/danielpatrickdp/argument-decoder/internal/eval"
	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/metrics"
	"github.com/danielpatrickdp/argument-decoder/internal/relations"
	"go.uber.org/zap"
)

// Modes are replayed in this order.
var Modes = []decoder.Mode{decoder.ModeCube, decoder.ModeADMM}

// #region types
// ReplayConfig bundles the decoder and eval configs for a replay run. The
// decoder mode is overridden per pass.
type ReplayConfig struct {
	Decoder decoder.Config
	Eval    eval.EvalConfig
}

// DefaultReplayConfig returns the default decoder and eval settings.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Decoder: decoder.DefaultConfig(),
		Eval:    eval.DefaultEvalConfig(),
	}
}

// ModeOutcome is what one decoder produced for one instance.
type ModeOutcome struct {
	Line    string
	Outcome string // decoder.Outcome label
	Score   float64
	Eval    *eval.EvalResult // nil when the decode failed
}

// ReplayResult captures both decoders' output for one instance.
type ReplayResult struct {
	Index int
	Frame string
	Modes map[decoder.Mode]ModeOutcome

	// Agree is true when both modes produced the same line, or failed with
	// the same outcome.
	Agree bool
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	Total        int
	Agreements   int
	Failures     int // instances that failed in at least one mode
	EvalFailures map[decoder.Mode]int
	Counts       map[decoder.Mode]eval.Counts
}

// Mismatch is a difference between a replayed line and the fixture.
type Mismatch struct {
	Index int
	Mode  decoder.Mode
	Want  string
	Got   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("instance %d (%s): want %q, got %q", m.Index, m.Mode, m.Want, m.Got)
}

// #endregion types

// #region replay
// Replay decodes every instance with each mode and pairs the outputs. A
// projection failure in either mode aborts the replay.
func Replay(ctx context.Context, insts []*frame.Instance, rel *relations.Table, config ReplayConfig, m *metrics.Metrics, logger *zap.Logger) ([]ReplayResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]ReplayResult, len(insts))
	for i, inst := range insts {
		results[i] = ReplayResult{Index: i, Frame: inst.Frame, Modes: make(map[decoder.Mode]ModeOutcome, len(Modes))}
	}

	harness := eval.NewEvalHarness(config.Eval)
	for _, mode := range Modes {
		cfg := config.Decoder
		cfg.Mode = mode
		d, err := decoder.New(cfg, nil, rel, m, logger.Named(string(mode)))
		if err != nil {
			return nil, err
		}
		batch, err := d.DecodeBatch(ctx, insts)
		d.Close()
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", mode, err)
		}
		for _, res := range batch {
			out := ModeOutcome{Line: res.Line, Outcome: decoder.Outcome(res.Err), Score: res.Score}
			if res.Err == nil {
				ev := harness.Run(res.Instance, res.Assignment)
				out.Eval = &ev
			}
			results[res.Index].Modes[mode] = out
		}
	}

	for i := range results {
		c, a := results[i].Modes[decoder.ModeCube], results[i].Modes[decoder.ModeADMM]
		results[i].Agree = c.Outcome == a.Outcome && c.Line == a.Line
		if !results[i].Agree {
			logger.Info("decoders disagree",
				zap.Int("index", i),
				zap.String("frame", results[i].Frame),
				zap.String("cube", c.Line),
				zap.String("admm", a.Line),
			)
		}
	}
	return results, nil
}

// #endregion replay

// #region summarize
// Summarize aggregates replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{
		Total:        len(results),
		EvalFailures: make(map[decoder.Mode]int),
		Counts:       make(map[decoder.Mode]eval.Counts),
	}
	for _, r := range results {
		if r.Agree {
			s.Agreements++
		}
		failed := false
		for mode, out := range r.Modes {
			if out.Eval == nil {
				failed = true
				continue
			}
			if !out.Eval.Passed {
				s.EvalFailures[mode]++
			}
			c := s.Counts[mode]
			c.Add(out.Eval.Counts)
			s.Counts[mode] = c
		}
		if failed {
			s.Failures++
		}
	}
	return s
}

// AgreementRate is the share of instances where both modes agree.
func (s ReplaySummary) AgreementRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Agreements) / float64(s.Total)
}

// Compare checks replayed results against the fixture's expectations.
func Compare(results []ReplayResult, expected []FixtureExpected) []Mismatch {
	var out []Mismatch
	for _, e := range expected {
		if e.Index < 0 || e.Index >= len(results) {
			out = append(out, Mismatch{Index: e.Index, Want: e.Line, Got: "<missing>"})
			continue
		}
		for _, mode := range Modes {
			got := results[e.Index].Modes[mode]
			if e.Outcome != "" {
				if got.Outcome != e.Outcome {
					out = append(out, Mismatch{Index: e.Index, Mode: mode, Want: e.Outcome, Got: got.Outcome})
				}
				continue
			}
			if want := e.Want(mode); got.Line != want {
				out = append(out, Mismatch{Index: e.Index, Mode: mode, Want: want, Got: got.Line})
			}
		}
	}
	return out
}

// #endregion summarize
