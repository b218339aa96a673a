package history

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by GetRun for unknown ids.
var ErrRunNotFound = stderrors.New("run not found")

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and creates) the history database.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		success INTEGER NOT NULL,
		category TEXT,
		exit_code INTEGER NOT NULL,
		output_dir TEXT,
		message TEXT,
		module_path TEXT,
		document BLOB
	);
	CREATE TABLE IF NOT EXISTS stage_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		result TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_stage_events_run_id ON stage_events(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun stores a run and its stage events in one transaction.
func (s *SQLiteStore) RecordRun(ctx context.Context, run RunRecord, stages []StageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, duration_ms, success, category, exit_code, output_dir, message, module_path, document)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.UnixMilli(), run.Duration.Milliseconds(), boolToInt(run.Success),
		run.Category, run.ExitCode, run.OutputDir, run.Message, run.ModulePath, run.Document,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, st := range stages {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO stage_events (run_id, stage, result, duration_ms, at) VALUES (?, ?, ?, ?, ?)",
			run.RunID, st.Stage, st.Result, st.Duration.Milliseconds(), st.At.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert stage event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = "run_id, started_at, duration_ms, success, category, exit_code, output_dir, message, module_path, document"

// ListRuns returns the most recent runs first. limit <= 0 means 20.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// GetRun returns one run with its stage events in execution order.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*RunRecord, []StageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := scanRun(s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT stage, result, duration_ms, at FROM stage_events WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, nil, fmt.Errorf("query stage events: %w", err)
	}
	defer rows.Close()

	var events []StageEvent
	for rows.Next() {
		var (
			e      StageEvent
			durMS  int64
			atUnix int64
		)
		if err := rows.Scan(&e.Stage, &e.Result, &durMS, &atUnix); err != nil {
			return nil, nil, fmt.Errorf("scan stage event: %w", err)
		}
		e.RunID = runID
		e.Duration = time.Duration(durMS) * time.Millisecond
		e.At = time.UnixMilli(atUnix)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return run, events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		r         RunRecord
		startedMS int64
		durMS     int64
		success   int
		category  sql.NullString
		outputDir sql.NullString
		message   sql.NullString
		module    sql.NullString
	)
	err := row.Scan(&r.RunID, &startedMS, &durMS, &success, &category, &r.ExitCode, &outputDir, &message, &module, &r.Document)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	r.StartedAt = time.UnixMilli(startedMS)
	r.Duration = time.Duration(durMS) * time.Millisecond
	r.Success = success != 0
	r.Category = category.String
	r.OutputDir = outputDir.String
	r.Message = message.String
	r.ModulePath = module.String
	return &r, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
