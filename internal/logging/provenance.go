package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/argument-decoder/internal/decoder"
	"github.com/danielpatrickdp/argument-decoder/internal/frame"
)

// #region log-decision
// LogDecision writes a decision entry to the decisions table.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	converged := 0
	if entry.Converged {
		converged = 1
	}

	_, err := db.Exec(
		`INSERT INTO decisions (run_id, instance_index, frame, sentence, outcome, line, score, iterations,
		                        converged, repaired, choices_json, violations_json, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.InstanceIndex,
		entry.Frame,
		entry.Sentence,
		entry.Outcome,
		nullIfEmpty(entry.Line),
		entry.Score,
		entry.Iterations,
		converged,
		entry.Repaired,
		nullIfEmpty(entry.ChoicesJSON),
		nullIfEmpty(entry.ViolationsJSON),
		nullIfEmpty(entry.Error),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region from-result
// EntryFromResult builds the decision row for one decoded instance. inst is
// the instance as submitted, used when the decode failed before scoring.
func EntryFromResult(runID string, inst *frame.Instance, res decoder.Result) (DecisionEntry, error) {
	entry := DecisionEntry{
		RunID:         runID,
		InstanceIndex: res.Index,
		Frame:         inst.Frame,
		Sentence:      inst.Target.Sentence,
		Outcome:       decoder.Outcome(res.Err),
		Line:          res.Line,
		Score:         res.Score,
		Iterations:    res.Iterations,
		Converged:     res.Converged,
		Repaired:      res.Repaired,
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
		return entry, nil
	}

	choices := make([]ChoiceRecord, len(res.Assignment))
	for i, c := range res.Assignment {
		spec := "-"
		if !c.Span.IsNull() {
			spec = c.Span.Spec()
		}
		choices[i] = ChoiceRecord{Role: c.Role, Span: spec, Score: c.Score}
	}
	b, err := json.Marshal(choices)
	if err != nil {
		return entry, fmt.Errorf("marshal choices: %w", err)
	}
	entry.ChoicesJSON = string(b)

	if len(res.Violations) > 0 {
		vs := make([]ViolationRecord, len(res.Violations))
		for i, v := range res.Violations {
			vs[i] = ViolationRecord{Type: string(v.Type), First: v.First, Second: v.Second}
		}
		b, err := json.Marshal(vs)
		if err != nil {
			return entry, fmt.Errorf("marshal violations: %w", err)
		}
		entry.ViolationsJSON = string(b)
	}
	return entry, nil
}

// #endregion from-result

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
