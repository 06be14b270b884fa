package runlog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS training_runs (
	run_id          TEXT PRIMARY KEY,
	model_id        TEXT,
	input_file      TEXT,
	output_file     TEXT,
	l_max           INTEGER NOT NULL,
	alpha           REAL NOT NULL,
	state_count     INTEGER NOT NULL,
	recurrent_count INTEGER NOT NULL,
	passes          INTEGER NOT NULL,
	converged       INTEGER NOT NULL,
	elapsed_ms      INTEGER NOT NULL,
	notes           TEXT,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON training_runs(created_at);
`

// #endregion schema

// #region types

// Run is one recorded training run: the parameters that produced a model and
// the headline results, kept for provenance and later inspection. The model
// itself stays in memory; only its summary is persisted.
type Run struct {
	RunID          string
	ModelID        string
	InputFile      string
	OutputFile     string
	LMax           int
	Alpha          float64
	StateCount     int
	RecurrentCount int
	Passes         int
	Converged      bool
	ElapsedMs      int64
	Notes          string
	CreatedAt      time.Time
}

// Store manages the training_runs table.
type Store struct {
	db *sql.DB
}

// #endregion types

// #region constructor

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion constructor

// #region record

// Record inserts one run. A missing run ID or timestamp is filled in.
func (s *Store) Record(r Run) (Run, error) {
	if r.RunID == "" {
		r.RunID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	converged := 0
	if r.Converged {
		converged = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO training_runs
		 (run_id, model_id, input_file, output_file, l_max, alpha,
		  state_count, recurrent_count, passes, converged, elapsed_ms, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID,
		nullIfEmpty(r.ModelID),
		nullIfEmpty(r.InputFile),
		nullIfEmpty(r.OutputFile),
		r.LMax, r.Alpha,
		r.StateCount, r.RecurrentCount, r.Passes, converged, r.ElapsedMs,
		nullIfEmpty(r.Notes),
		r.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return r, nil
}

// #endregion record

// #region queries

// Get retrieves one run by ID.
func (s *Store) Get(runID string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT run_id, model_id, input_file, output_file, l_max, alpha,
		        state_count, recurrent_count, passes, converged, elapsed_ms, notes, created_at
		 FROM training_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT run_id, model_id, input_file, output_file, l_max, alpha,
		        state_count, recurrent_count, passes, converged, elapsed_ms, notes, created_at
		 FROM training_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var modelID, inputFile, outputFile, notes sql.NullString
	var converged int
	var createdStr string

	err := row.Scan(&r.RunID, &modelID, &inputFile, &outputFile, &r.LMax, &r.Alpha,
		&r.StateCount, &r.RecurrentCount, &r.Passes, &converged, &r.ElapsedMs,
		&notes, &createdStr)
	if err != nil {
		return Run{}, err
	}
	r.ModelID = modelID.String
	r.InputFile = inputFile.String
	r.OutputFile = outputFile.String
	r.Notes = notes.String
	r.Converged = converged != 0
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return r, nil
}

// #endregion queries

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
