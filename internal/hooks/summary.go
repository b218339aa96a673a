package hooks

import "time"

// RunSummary is the JSON view of a run as seen by after-generate hooks.
type RunSummary struct {
	RunID           string    `json:"runId"`
	Success         bool      `json:"success"`
	ExitCode        int       `json:"exitCode"`
	SourceDir       string    `json:"sourceDir"`
	Config          string    `json:"config,omitempty"`
	OutputDir       string    `json:"outputDir"`
	OutputDirs      []string  `json:"outputDirs"`
	Command         []string  `json:"command,omitempty"`
	StartedAt       time.Time `json:"startedAt,omitzero"`
	DurationSeconds float64   `json:"durationSeconds"`
	Stderr          string    `json:"stderr,omitempty"`
}

// Summary snapshots the context. Stdout is omitted; Stderr carries the
// compiler's diagnostics.
func (pc *PipelineContext) Summary() RunSummary {
	s := RunSummary{
		RunID:      pc.RunID,
		Success:    pc.Generated(),
		ExitCode:   -1,
		SourceDir:  pc.SourceRoot(),
		OutputDir:  pc.OutputDir,
		OutputDirs: append([]string{}, pc.OutputDirs...),
	}
	if pc.Modules != nil {
		s.Config = pc.Modules.ConfigPath
	}
	if inv := pc.Invocation; inv != nil {
		s.ExitCode = inv.ExitCode
		s.Command = inv.Argv
		s.StartedAt = inv.StartedAt
		s.DurationSeconds = inv.Duration.Seconds()
		s.Stderr = inv.Stderr
	}
	return s
}
