// Package store persists classification runs so batches can be audited
// and re-examined after the fact. Each run records the input it came
// from, the thresholds in force, and one row per classified record.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/biorecs/occuncertainty/internal/model"
)

// RunStatus tracks a run through its lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one classification batch.
type Run struct {
	ID         string    `json:"id"`
	Input      string    `json:"input"`
	Thresholds string    `json:"thresholds"`
	Status     RunStatus `json:"status"`
	Records    int       `json:"records"`
	Usable     int       `json:"usable"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SQLiteStore implements the run store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	input      TEXT NOT NULL,
	thresholds TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	records    INTEGER NOT NULL DEFAULT 0,
	usable     INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_results (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	seq        INTEGER NOT NULL,
	record_id  TEXT NOT NULL,
	uncer_type TEXT NOT NULL,
	usable     INTEGER NOT NULL,
	area_km2   REAL,
	diagnostic TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_results_record_id ON run_results(record_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun opens a run for the named input. thresholds is recorded as
// JSON so the run is reproducible even after defaults change.
func (s *SQLiteStore) CreateRun(ctx context.Context, input string, thresholds any) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	thJSON, err := json.Marshal(thresholds)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal thresholds")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input, thresholds, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, input, string(thJSON), string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:         id,
		Input:      input,
		Thresholds: string(thJSON),
		Status:     RunStatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// SaveResults writes the result rows for a run in input order, in one
// transaction, and marks the run complete with its usable count.
func (s *SQLiteStore) SaveResults(ctx context.Context, runID string, results []model.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	usable := 0
	for i, res := range results {
		diagJSON, err := json.Marshal(res.Diagnostic)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal diagnostic %s", res.RecordID)
		}
		var area any
		if res.AreaKM2 != nil {
			area = *res.AreaKM2
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_results (run_id, seq, record_id, uncer_type, usable, area_km2, diagnostic) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, i, res.RecordID, string(res.UncerType), res.Usable, area, string(diagJSON),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert result %s", res.RecordID)
		}
		if res.Usable {
			usable++
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, records = ?, usable = ?, updated_at = ? WHERE id = ?`,
		string(RunStatusComplete), len(results), usable, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	if err := checkRowsAffected(res, "run", runID); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit results")
}

// FailRun marks a run failed.
func (s *SQLiteStore) FailRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

// GetRun returns one run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, thresholds, status, records, usable, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

// ListRuns returns runs newest first, up to limit (0 means 50).
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, thresholds, status, records, usable, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// ListResults returns a run's result rows in input order.
func (s *SQLiteStore) ListResults(ctx context.Context, runID string) ([]model.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, uncer_type, usable, area_km2, diagnostic FROM run_results WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list results %s", runID)
	}
	defer rows.Close()

	var out []model.Result
	for rows.Next() {
		var res model.Result
		var uncer, diagJSON string
		var area sql.NullFloat64
		if err := rows.Scan(&res.RecordID, &uncer, &res.Usable, &area, &diagJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		res.UncerType = model.UncerType(uncer)
		if area.Valid {
			res.AreaKM2 = &area.Float64
		}
		if err := json.Unmarshal([]byte(diagJSON), &res.Diagnostic); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal diagnostic")
		}
		out = append(out, res)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate results")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var status string
	err := row.Scan(&r.ID, &r.Input, &r.Thresholds, &status, &r.Records, &r.Usable, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = RunStatus(status)
	return &r, nil
}
