package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	mode         TEXT NOT NULL,
	source       TEXT,
	config_json  TEXT,
	instances    INTEGER NOT NULL DEFAULT 0,
	failures     INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	finished_at  TEXT
);

CREATE TABLE IF NOT EXISTS decisions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id           TEXT NOT NULL,
	instance_index   INTEGER NOT NULL,
	frame            TEXT NOT NULL,
	sentence         INTEGER NOT NULL,
	outcome          TEXT NOT NULL,
	line             TEXT,
	score            REAL NOT NULL DEFAULT 0,
	iterations       INTEGER NOT NULL DEFAULT 0,
	converged        INTEGER NOT NULL DEFAULT 0,
	repaired         INTEGER NOT NULL DEFAULT 0,
	choices_json     TEXT,
	violations_json  TEXT,
	error            TEXT,
	created_at       TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS decisions_run ON decisions(run_id, instance_index);
`

// #endregion schema

// #region store-struct
// Store keeps decoder runs and their decisions in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for the decision log.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region runs
// CreateRun opens a new run with a fresh id.
func (s *Store) CreateRun(mode, source, configJSON string) (Run, error) {
	run := Run{
		RunID:      uuid.New().String(),
		Mode:       mode,
		Source:     source,
		ConfigJSON: configJSON,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, mode, source, config_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.Mode, nullIfEmpty(source), nullIfEmpty(configJSON), run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun records the final counts and closes the run.
func (s *Store) FinishRun(runID string, instances, failures int) error {
	res, err := s.db.Exec(
		`UPDATE runs SET instances = ?, failures = ?, finished_at = ? WHERE run_id = ?`,
		instances, failures, time.Now().UTC().Format(time.RFC3339Nano), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun retrieves one run.
func (s *Store) GetRun(runID string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT run_id, mode, source, config_json, instances, failures, created_at, finished_at
		 FROM runs WHERE run_id = ?`, runID,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT run_id, mode, source, config_json, instances, failures, created_at, finished_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var source, configJSON, finished sql.NullString
	var created string
	if err := sc.Scan(&run.RunID, &run.Mode, &source, &configJSON, &run.Instances, &run.Failures, &created, &finished); err != nil {
		return Run{}, err
	}
	run.Source = source.String
	run.ConfigJSON = configJSON.String
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	if finished.Valid {
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
	}
	return run, nil
}

// #endregion runs

// #region decisions
// ListDecisions returns a run's decisions in instance order.
func (s *Store) ListDecisions(runID string) ([]Decision, error) {
	rows, err := s.db.Query(
		`SELECT run_id, instance_index, frame, sentence, outcome, line, score, iterations,
		        converged, repaired, choices_json, violations_json, error, created_at
		 FROM decisions WHERE run_id = ? ORDER BY instance_index`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var line, choices, violations, errText sql.NullString
		var converged int
		var created string
		if err := rows.Scan(&d.RunID, &d.InstanceIndex, &d.Frame, &d.Sentence, &d.Outcome, &line,
			&d.Score, &d.Iterations, &converged, &d.Repaired, &choices, &violations, &errText, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		d.Line = line.String
		d.Converged = converged != 0
		d.ChoicesJSON = choices.String
		d.ViolationsJSON = violations.String
		d.Error = errText.String
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, d)
	}
	return out, rows.Err()
}

// #endregion decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
