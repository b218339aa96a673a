package report

import (
	"math"

	"git.home.luguber.info/inful/getbuf/internal/pipeline"
)

// Document is the machine-readable form of a run Result. Field names are a
// stable contract for CI consumers; only additions are allowed.
type Document struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message"`
	ExitCode     int              `json:"exitCode"`
	Stdout       string           `json:"stdout"`
	Stderr       string           `json:"stderr"`
	OutputDir    string           `json:"outputDir"`
	HookFailures []HookFailureDoc `json:"hookFailures"`
	Error        *ErrorDoc        `json:"error,omitempty"`

	RunID           string            `json:"runId"`
	State           string            `json:"state"`
	ReachedState    string            `json:"reachedState"`
	Command         []string          `json:"command,omitempty"`
	Workdir         string            `json:"workdir,omitempty"`
	DurationSeconds float64           `json:"durationSeconds"`
	OutputDirs      []string          `json:"outputDirs,omitempty"`
	Modules         []string          `json:"modules,omitempty"`
	CleanedDirs     []string          `json:"cleanedDirs"`
	WrittenFiles    []string          `json:"writtenFiles"`
	ToolVersion     string            `json:"toolVersion,omitempty"`
	PluginVersion   string            `json:"pluginVersion,omitempty"`
	SourceRevision  string            `json:"sourceRevision,omitempty"`
	Env             map[string]string `json:"env,omitempty"`
}

// HookFailureDoc describes one failing hook.
type HookFailureDoc struct {
	Stage string `json:"stage"`
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ErrorDoc is the structured primary error.
type ErrorDoc struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// NewDocument converts a Result. Slices are never nil so they encode as [].
func NewDocument(res *pipeline.Result) *Document {
	doc := &Document{
		Success:         res.Success,
		Message:         res.Message,
		ExitCode:        res.ExitCode,
		OutputDir:       res.OutputDir,
		HookFailures:    make([]HookFailureDoc, 0, len(res.HookFailures)),
		RunID:           res.RunID,
		State:           string(res.State),
		ReachedState:    string(res.ReachedState),
		DurationSeconds: math.Round(res.Duration.Seconds()*1000) / 1000,
		OutputDirs:      res.OutputDirs,
		Modules:         res.Modules,
		CleanedDirs:     nonNil(res.CleanedDirs),
		WrittenFiles:    nonNil(res.WrittenFiles),
		ToolVersion:     res.Telemetry.ToolVersion,
		PluginVersion:   res.Telemetry.PluginVersion,
		SourceRevision:  res.Telemetry.SourceRevision,
		Env:             res.Telemetry.Env,
	}
	if inv := res.Invocation; inv != nil {
		doc.Stdout = inv.Stdout
		doc.Stderr = inv.Stderr
		doc.Command = inv.Argv
		doc.Workdir = inv.Dir
	}
	for _, hf := range res.HookFailures {
		d := HookFailureDoc{Stage: string(hf.Stage), Index: hf.Index, Name: hf.Name}
		if hf.Cause != nil {
			d.Error = hf.Cause.Error()
		}
		doc.HookFailures = append(doc.HookFailures, d)
	}
	if !res.Success {
		doc.Error = &ErrorDoc{Category: string(res.Category), Message: res.Message}
	}
	return doc
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
