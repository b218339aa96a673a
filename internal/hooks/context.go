package hooks

import (
	"log/slog"

	"git.home.luguber.info/inful/getbuf/internal/compiler"
	"git.home.luguber.info/inful/getbuf/internal/locator"
)

// PipelineContext is the single mutable state shared by all hooks of a run.
// Hooks receive it by pointer and never retain it beyond the call.
type PipelineContext struct {
	RunID string

	Modules  *locator.ModuleSet
	Template *compiler.Template

	// OutputDir is the primary output directory in display form.
	OutputDir string
	// OutputDirs are all absolute plugin output directories.
	OutputDirs []string

	Clean      bool
	JSONOutput bool

	// Invocation is set once the compiler returned, including on non-zero exit.
	Invocation *compiler.InvocationResult

	Logger *slog.Logger

	// Data lets hooks pass values to later hooks and stages.
	Data map[string]any
}

// NewPipelineContext creates a context with an empty data map.
func NewPipelineContext(runID string, logger *slog.Logger) *PipelineContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineContext{
		RunID:  runID,
		Logger: logger,
		Data:   make(map[string]any),
	}
}

// Set stores a value in the data map.
func (pc *PipelineContext) Set(key string, value any) {
	if pc.Data == nil {
		pc.Data = make(map[string]any)
	}
	pc.Data[key] = value
}

// Get returns a value from the data map.
func (pc *PipelineContext) Get(key string) (any, bool) {
	v, ok := pc.Data[key]
	return v, ok
}

// GetString returns the string at key or "".
func (pc *PipelineContext) GetString(key string) string {
	if v, ok := pc.Data[key].(string); ok {
		return v
	}
	return ""
}

// GetStrings returns the string slice at key or nil.
func (pc *PipelineContext) GetStrings(key string) []string {
	if v, ok := pc.Data[key].([]string); ok {
		return v
	}
	return nil
}

// Append adds values to the string slice at key.
func (pc *PipelineContext) Append(key string, values ...string) {
	pc.Set(key, append(pc.GetStrings(key), values...))
}

// Generated reports whether the compiler ran and exited with status 0.
func (pc *PipelineContext) Generated() bool {
	return pc.Invocation.Succeeded()
}

// SourceRoot returns the located source root or "" before location.
func (pc *PipelineContext) SourceRoot() string {
	if pc.Modules == nil {
		return ""
	}
	return pc.Modules.SourceRoot
}

// PrimaryOutputDir returns the absolute primary output directory or "" before
// the template is parsed.
func (pc *PipelineContext) PrimaryOutputDir() string {
	if len(pc.OutputDirs) > 0 {
		return pc.OutputDirs[0]
	}
	return pc.Template.PrimaryOutputDir()
}

func (pc *PipelineContext) log() *slog.Logger {
	if pc.Logger == nil {
		return slog.Default()
	}
	return pc.Logger
}
