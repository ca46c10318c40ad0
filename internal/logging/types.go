package logging

import "time"

// #region decision-entry
// DecisionEntry is a single row in the decisions table.
type DecisionEntry struct {
	RunID          string
	InstanceIndex  int
	Frame          string
	Sentence       int
	Outcome        string // "ok" | "infeasible" | "malformed" | "projection_failure" | "canceled"
	Line           string
	Score          float64
	Iterations     int
	Converged      bool
	Repaired       int
	ChoicesJSON    string
	ViolationsJSON string
	Error          string
	CreatedAt      time.Time
}

// #endregion decision-entry

// #region choice-record
// ChoiceRecord is one role's choice as serialized into decisions.choices_json.
type ChoiceRecord struct {
	Role  string  `json:"role"`
	Span  string  `json:"span"` // "i", "i:j" or "-" when unfilled
	Score float64 `json:"score"`
}

// ViolationRecord is one repaired relation as serialized into decisions.violations_json.
type ViolationRecord struct {
	Type   string `json:"type"`
	First  string `json:"first"`
	Second string `json:"second"`
}

// #endregion choice-record
