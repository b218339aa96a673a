package pipeline

import (
	"time"

	"git.home.luguber.info/inful/getbuf/internal/compiler"
	"git.home.luguber.info/inful/getbuf/internal/foundation/errors"
	"git.home.luguber.info/inful/getbuf/internal/hooks"
)

// Telemetry is best-effort environment information gathered for a run.
type Telemetry struct {
	ToolVersion    string
	PluginVersion  string
	SourceRevision string
	Env            map[string]string
}

// Result is the terminal artifact of a run.
type Result struct {
	RunID   string
	Success bool
	Message string
	// Category is empty on success.
	Category errors.ErrorCategory
	ExitCode int
	// State is StateReported once the run finished.
	State State
	// ReachedState is the furthest state the run reached before reporting.
	ReachedState State

	Invocation   *compiler.InvocationResult
	HookFailures []*hooks.HookFailure

	// OutputDir is the primary output directory in display form.
	OutputDir  string
	OutputDirs []string
	// Modules are module roots relative to the source root; nil for a single module.
	Modules      []string
	CleanedDirs  []string
	WrittenFiles []string

	StartedAt time.Time
	Duration  time.Duration
	Telemetry Telemetry

	// Err is the primary error, nil on success.
	Err error
}

// Outcome labels the run for metrics and history: "success" or the error category.
func (r *Result) Outcome() string {
	if r.Success {
		return "success"
	}
	return string(r.Category)
}
