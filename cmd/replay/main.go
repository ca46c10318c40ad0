package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/danielpatrickdp/argument-decoder/internal/decoder"
	"github.com/danielpatrickdp/argument-decoder/internal/logging"
	"github.com/danielpatrickdp/argument-decoder/internal/metrics"
	"github.com/danielpatrickdp/argument-decoder/internal/replay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// errRegression marks a replay that ran but did not match the fixture.
var errRegression = errors.New("replay regression")

var (
	fixturePath string
	jsonOut     bool
	logLevel    string
)

// #region main
var rootCmd = &cobra.Command{
	Use:   "replay --fixture path/to/fixture.json",
	Short: "Replay a fixture through both decoders",
	Long: `Decode every fixture instance with the cube and ADMM decoders, compare the
decision lines with the fixture's expectations and report agreement and F1.
Exits 1 on any mismatch or eval failure and 2 when the fixture cannot be run.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFixture(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.Flags().StringVar(&fixturePath, "fixture", "", "path to fixture JSON")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "output results as JSON")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level")
	_ = rootCmd.MarkFlagRequired("fixture")
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	switch {
	case err == nil:
	case errors.Is(err, errRegression):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

// #endregion main

// #region fixture-mode
func runFixture(ctx context.Context, w io.Writer) error {
	logger, err := logging.NewLogger(logLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	f, err := replay.LoadFixture(fixturePath)
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}

	results, err := replay.Replay(ctx, f.ToInstances(), f.RelationTable(), f.Config.ToReplayConfig(),
		metrics.New(prometheus.NewRegistry()), logger)
	if err != nil {
		return err
	}
	summary := replay.Summarize(results)
	mismatches := replay.Compare(results, f.Expected)

	if jsonOut {
		if err := printJSON(w, results, summary, mismatches); err != nil {
			return err
		}
	} else if err := printComparison(w, f.Description, results, summary, mismatches); err != nil {
		return err
	}

	evalFailures := 0
	for _, n := range summary.EvalFailures {
		evalFailures += n
	}
	if len(mismatches) > 0 || evalFailures > 0 {
		return fmt.Errorf("%w: %d mismatches, %d eval failures", errRegression, len(mismatches), evalFailures)
	}
	return nil
}

// #endregion fixture-mode

// #region output
func printComparison(w io.Writer, desc string, results []replay.ReplayResult, s replay.ReplaySummary, mismatches []replay.Mismatch) error {
	if desc != "" {
		fmt.Fprintf(w, "%s\n\n", desc)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFRAME\tCUBE\tADMM\tAGREE")
	for _, r := range results {
		agree := "yes"
		if !r.Agree {
			agree = "NO"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Index, r.Frame,
			modeSummary(r.Modes[decoder.ModeCube]), modeSummary(r.Modes[decoder.ModeADMM]), agree)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAgreement: %d/%d (%.1f%%)  Failures: %d\n",
		s.Agreements, s.Total, 100*s.AgreementRate(), s.Failures)
	for _, mode := range replay.Modes {
		c := s.Counts[mode]
		fmt.Fprintf(w, "%-5s P=%.3f R=%.3f F1=%.3f  eval failures: %d\n",
			mode, c.Precision(), c.Recall(), c.F1(), s.EvalFailures[mode])
	}
	if len(mismatches) > 0 {
		fmt.Fprintf(w, "\n%d mismatches:\n", len(mismatches))
		for _, m := range mismatches {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	return nil
}

func modeSummary(o replay.ModeOutcome) string {
	if o.Outcome != metrics.OutcomeOK {
		return o.Outcome
	}
	return fmt.Sprintf("ok %.3f", o.Score)
}

func printJSON(w io.Writer, results []replay.ReplayResult, s replay.ReplaySummary, mismatches []replay.Mismatch) error {
	type modeJSON struct {
		Line    string  `json:"line,omitempty"`
		Outcome string  `json:"outcome"`
		Score   float64 `json:"score"`
		Passed  *bool   `json:"eval_passed,omitempty"`
	}
	type resultJSON struct {
		Index int                 `json:"index"`
		Frame string              `json:"frame"`
		Agree bool                `json:"agree"`
		Modes map[string]modeJSON `json:"modes"`
	}
	out := struct {
		Results    []resultJSON `json:"results"`
		Agreement  float64      `json:"agreement_rate"`
		Failures   int          `json:"failures"`
		Mismatches []string     `json:"mismatches"`
	}{Agreement: s.AgreementRate(), Failures: s.Failures, Mismatches: []string{}}

	for _, r := range results {
		rj := resultJSON{Index: r.Index, Frame: r.Frame, Agree: r.Agree, Modes: map[string]modeJSON{}}
		for mode, o := range r.Modes {
			mj := modeJSON{Line: o.Line, Outcome: o.Outcome, Score: o.Score}
			if o.Eval != nil {
				passed := o.Eval.Passed
				mj.Passed = &passed
			}
			rj.Modes[string(mode)] = mj
		}
		out.Results = append(out.Results, rj)
	}
	for _, m := range mismatches {
		out.Mismatches = append(out.Mismatches, m.String())
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// #endregion output
