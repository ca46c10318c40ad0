package store

import "time"

// #region run
// Run is one invocation of the decoder over an input set.
type Run struct {
	RunID      string
	Mode       string
	Source     string // input path, "-" for stdin, or grpc://addr
	ConfigJSON string
	Instances  int
	Failures   int
	CreatedAt  time.Time
	FinishedAt time.Time // zero while the run is open
}

// #endregion run

// #region decision
// Decision is one decoded (or failed) instance within a run.
type Decision struct {
	RunID          string
	InstanceIndex  int
	Frame          string
	Sentence       int
	Outcome        string // "ok" or the failure class
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

// #endregion decision
