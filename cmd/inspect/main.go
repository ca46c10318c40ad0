package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danielpatrickdp/argument-decoder/internal/logging"
	"github.com/danielpatrickdp/argument-decoder/internal/store"
	"github.com/spf13/cobra"
)

var (
	dbPath  string
	jsonOut bool
	last    int
	failed  bool
)

// #region commands
var rootCmd = &cobra.Command{
	Use:           "inspect",
	Short:         "Inspect decode runs recorded in the SQLite store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the most recent runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			return runList(cmd.OutOrStdout(), st)
		})
	},
}

var decisionsCmd = &cobra.Command{
	Use:   "decisions <run-id>",
	Short: "Show the decisions of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			return runDetail(cmd.OutOrStdout(), st, args[0])
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "argdec.db", "path to the run store")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON instead of a table")
	runsCmd.Flags().IntVar(&last, "last", 20, "show N most recent runs")
	decisionsCmd.Flags().BoolVar(&failed, "failed", false, "only show failed instances")
	rootCmd.AddCommand(runsCmd, decisionsCmd)
}

func withStore(fn func(*store.Store) error) error {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()
	return fn(st)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion commands

// #region list-mode
type runRow struct {
	RunID      string `json:"run_id"`
	Mode       string `json:"mode"`
	Source     string `json:"source,omitempty"`
	Instances  int    `json:"instances"`
	Failures   int    `json:"failures"`
	CreatedAt  string `json:"created_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

func runList(w io.Writer, st *store.Store) error {
	runs, err := st.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	rows := make([]runRow, len(runs))
	for i, r := range runs {
		rows[i] = runRow{
			RunID:      r.RunID,
			Mode:       r.Mode,
			Source:     r.Source,
			Instances:  r.Instances,
			Failures:   r.Failures,
			CreatedAt:  r.CreatedAt.Format(time.RFC3339),
			FinishedAt: formatTime(r.FinishedAt),
		}
	}
	if jsonOut {
		return printJSON(w, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tMODE\tSOURCE\tINSTANCES\tFAILURES\tCREATED\tFINISHED")
	for _, r := range rows {
		finished := r.FinishedAt
		if finished == "" {
			finished = "open"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			shortID(r.RunID), r.Mode, r.Source, r.Instances, r.Failures, r.CreatedAt, finished)
	}
	return tw.Flush()
}

// #endregion list-mode

// #region detail-mode
type decisionRow struct {
	Index      int                       `json:"index"`
	Frame      string                    `json:"frame"`
	Sentence   int                       `json:"sentence"`
	Outcome    string                    `json:"outcome"`
	Line       string                    `json:"line,omitempty"`
	Score      float64                   `json:"score"`
	Iterations int                       `json:"iterations"`
	Converged  bool                      `json:"converged"`
	Repaired   int                       `json:"repaired"`
	Choices    []logging.ChoiceRecord    `json:"choices,omitempty"`
	Violations []logging.ViolationRecord `json:"violations,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

func runDetail(w io.Writer, st *store.Store, runID string) error {
	run, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	decisions, err := st.ListDecisions(run.RunID)
	if err != nil {
		return err
	}

	rows := make([]decisionRow, 0, len(decisions))
	for _, d := range decisions {
		if failed && d.Outcome == "ok" {
			continue
		}
		row := decisionRow{
			Index:      d.InstanceIndex,
			Frame:      d.Frame,
			Sentence:   d.Sentence,
			Outcome:    d.Outcome,
			Line:       d.Line,
			Score:      d.Score,
			Iterations: d.Iterations,
			Converged:  d.Converged,
			Repaired:   d.Repaired,
			Error:      d.Error,
		}
		if d.ChoicesJSON != "" {
			if err := json.Unmarshal([]byte(d.ChoicesJSON), &row.Choices); err != nil {
				return fmt.Errorf("decision %d choices: %w", d.InstanceIndex, err)
			}
		}
		if d.ViolationsJSON != "" {
			if err := json.Unmarshal([]byte(d.ViolationsJSON), &row.Violations); err != nil {
				return fmt.Errorf("decision %d violations: %w", d.InstanceIndex, err)
			}
		}
		rows = append(rows, row)
	}
	if jsonOut {
		return printJSON(w, rows)
	}

	fmt.Fprintf(w, "Run %s (%s, %s): %d instances, %d failures\n\n",
		run.RunID, run.Mode, run.Source, run.Instances, run.Failures)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFRAME\tOUTCOME\tSCORE\tITER\tREPAIRED\tFILLERS")
	for _, r := range rows {
		detail := formatChoices(r.Choices)
		if r.Error != "" {
			detail = r.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\t%d\t%d\t%s\n",
			r.Index, r.Frame, r.Outcome, r.Score, r.Iterations, r.Repaired, detail)
	}
	return tw.Flush()
}

// #endregion detail-mode

// #region helpers
func formatChoices(choices []logging.ChoiceRecord) string {
	var parts []string
	for _, c := range choices {
		if c.Span == "-" {
			continue
		}
		parts = append(parts, c.Role+"="+c.Span)
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, " ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// #endregion helpers
