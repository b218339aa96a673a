package history

import (
	"context"
	"time"
)

// RunRecord is one persisted run.
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	Duration   time.Duration
	Success    bool
	Category   string
	ExitCode   int
	OutputDir  string
	Message    string
	ModulePath string
	// Document is the JSON report of the run.
	Document []byte
}

// StageEvent is one completed stage of a run.
type StageEvent struct {
	RunID    string
	Stage    string
	Result   string
	Duration time.Duration
	At       time.Time
}

// Store persists runs.
type Store interface {
	RecordRun(ctx context.Context, run RunRecord, stages []StageEvent) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	GetRun(ctx context.Context, runID string) (*RunRecord, []StageEvent, error)
	Close() error
}
