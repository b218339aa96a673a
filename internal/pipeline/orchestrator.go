package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/getbuf/internal/compiler"
	"git.home.luguber.info/inful/getbuf/internal/foundation/errors"
	"git.home.luguber.info/inful/getbuf/internal/hooks"
	"git.home.luguber.info/inful/getbuf/internal/locator"
	"git.home.luguber.info/inful/getbuf/internal/logfields"
	"git.home.luguber.info/inful/getbuf/internal/metrics"
	"git.home.luguber.info/inful/getbuf/internal/workspace"
)

// Compiler parses generation configs and runs the external compiler.
type Compiler interface {
	Template(ms *locator.ModuleSet) (*compiler.Template, error)
	Invoke(ctx context.Context, ms *locator.ModuleSet, tmpl *compiler.Template) (*compiler.InvocationResult, error)
}

// VersionProber is implemented by compilers that can report tool versions.
type VersionProber interface {
	ToolVersion(ctx context.Context) string
	PluginVersion(ctx context.Context, tmpl *compiler.Template) string
}

// Workspace prepares output directories.
type Workspace interface {
	Prepare(outputDir string, clean bool) (*workspace.Preparation, error)
}

// LocateFunc resolves a module path and generation config into a ModuleSet.
type LocateFunc func(path, configPath string) (*locator.ModuleSet, error)

// Request describes one run.
type Request struct {
	ModulePath string
	ConfigPath string
	Clean      bool
	JSONOutput bool
	// RequireModuleConfig fails the run when the source root has no valid buf.yaml.
	RequireModuleConfig bool
	// RunID is generated when empty.
	RunID string
}

// Orchestrator runs the generation state machine.
type Orchestrator struct {
	hooks     *hooks.Registry
	compiler  Compiler
	workspace Workspace
	locate    LocateFunc
	observer  Observer
	logger    *slog.Logger
	telemetry bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver sets the observer receiving stage and run callbacks.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithRecorder adds a metrics recorder next to any configured observer.
func WithRecorder(rec metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if rec != nil {
			o.observer = MultiObserver{o.observer, RecorderObserver{Rec: rec}}
		}
	}
}

// WithLocator replaces the module locator.
func WithLocator(fn LocateFunc) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.locate = fn
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTelemetry enables version probes and environment capture after generation.
func WithTelemetry(enabled bool) Option {
	return func(o *Orchestrator) { o.telemetry = enabled }
}

// NewOrchestrator wires a registry, compiler and workspace into an orchestrator.
// A nil registry behaves as an empty one.
func NewOrchestrator(reg *hooks.Registry, c Compiler, ws Workspace, opts ...Option) *Orchestrator {
	if reg == nil {
		reg = hooks.NewRegistry()
	}
	o := &Orchestrator{
		hooks:     reg,
		compiler:  c,
		workspace: ws,
		locate:    locator.Locate,
		observer:  NoopObserver{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run holds the per-run state threaded through the stages.
type run struct {
	o      *Orchestrator
	req    Request
	pc     *hooks.PipelineContext
	res    *Result
	logger *slog.Logger
	done   bool
}

func (o *Orchestrator) begin(req Request) *run {
	id := req.RunID
	if id == "" {
		id = uuid.NewString()
	}
	logger := o.logger.With(logfields.RunID(id))
	pc := hooks.NewPipelineContext(id, logger)
	pc.Clean = req.Clean
	pc.JSONOutput = req.JSONOutput
	return &run{
		o:      o,
		req:    req,
		pc:     pc,
		logger: logger,
		res: &Result{
			RunID:        id,
			State:        StateIdle,
			ReachedState: StateIdle,
			StartedAt:    time.Now(),
		},
	}
}

// Run executes a full generation run. It never returns nil.
func (o *Orchestrator) Run(ctx context.Context, req Request) *Result {
	r := o.begin(req)
	defer r.finish()

	if !r.locateStage(ctx) {
		return r.res
	}
	if req.Clean {
		if !r.cleanStages(ctx) {
			return r.res
		}
	} else if !r.prepareStage(ctx) {
		return r.res
	}
	r.generateStages(ctx)
	return r.res
}

// Clean runs only locate and the clean stages.
func (o *Orchestrator) Clean(ctx context.Context, req Request) *Result {
	req.Clean = true
	r := o.begin(req)
	defer r.finish()

	if !r.locateStage(ctx) || !r.cleanStages(ctx) {
		return r.res
	}
	r.res.Success = true
	r.res.ExitCode = errors.ExitOK
	r.res.Message = fmt.Sprintf("Cleaned %d output director%s", len(r.res.CleanedDirs), plural(len(r.res.CleanedDirs), "y", "ies"))
	return r.res
}

func (r *run) finish() {
	r.res.Duration = time.Since(r.res.StartedAt)
	r.res.State = StateReported
	if r.res.Invocation == nil {
		r.res.Invocation = r.pc.Invocation
	}
	attrs := []any{
		logfields.State(string(r.res.ReachedState)),
		logfields.ExitCode(r.res.ExitCode),
		logfields.DurationMS(float64(r.res.Duration.Milliseconds())),
	}
	if r.res.Success {
		r.logger.Info("Run completed", attrs...)
	} else {
		r.logger.Warn("Run failed", append(attrs, logfields.Category(string(r.res.Category)), logfields.Error(r.res.Err))...)
	}
	r.o.observer.OnRunComplete(r.res)
}

// stage wraps fn with observer callbacks.
func (r *run) stage(name StageName, fn func() error) error {
	r.o.observer.OnStageStart(name)
	t0 := time.Now()
	err := fn()
	label := metrics.ResultSuccess
	if err != nil {
		label = metrics.ResultFailed
		if errors.HasCategory(err, errors.CategoryCancelled) {
			label = metrics.ResultCanceled
		}
	}
	r.o.observer.OnStageComplete(name, time.Since(t0), label)
	return err
}

// fail records err as the terminal outcome.
func (r *run) fail(err error) bool {
	cat := errors.GetCategory(err)
	r.res.Success = false
	r.res.Category = cat
	r.res.Err = err
	r.res.Message = errors.MessageOf(err)
	r.res.ExitCode = errors.ExitCodeForCategory(cat)
	return false
}

// cancelled converts a done context into a terminal result.
func (r *run) cancelled(ctx context.Context, where StageName) bool {
	err := ctx.Err()
	if err == nil {
		return false
	}
	r.fail(errors.WrapError(err, errors.CategoryCancelled, "run cancelled").
		Fatal().WithContext("stage", string(where)).Build())
	return true
}

func (r *run) runHooks(ctx context.Context, stage hooks.Stage) error {
	return r.stage(StageName(stage), func() error {
		err := r.o.hooks.Run(ctx, stage, r.pc)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return errors.WrapError(ctx.Err(), errors.CategoryCancelled, "run cancelled").
				Fatal().WithContext("stage", string(stage)).Build()
		}
		return err
	})
}

// hookError classifies a failing hook stage and records it.
func (r *run) hookError(err error) bool {
	var hf *hooks.HookFailure
	if stderrors.As(err, &hf) {
		r.res.HookFailures = append(r.res.HookFailures, hf)
		return r.fail(errors.WrapError(hf, errors.CategoryHookFailure, fmt.Sprintf("%s hook %q failed", hf.Stage, hf.Name)).
			WithContext("stage", string(hf.Stage)).
			WithContext("hook_index", hf.Index).
			Build())
	}
	return r.fail(err)
}

func (r *run) locateStage(ctx context.Context) bool {
	if r.cancelled(ctx, StageLocate) {
		return false
	}
	err := r.stage(StageLocate, func() error {
		ms, err := r.o.locate(r.req.ModulePath, r.req.ConfigPath)
		if err != nil {
			return err
		}
		if r.req.RequireModuleConfig {
			if _, err := compiler.ParseModuleConfig(ms.ModuleConfigPath()); err != nil {
				return err
			}
		}
		tmpl, err := r.o.compiler.Template(ms)
		if err != nil {
			return err
		}
		r.pc.Modules = ms
		r.pc.Template = tmpl
		r.pc.OutputDirs = tmpl.OutputDirs
		r.pc.OutputDir = displayPath(r.req.ModulePath, ms.SourceRoot, tmpl.PrimaryOutputDir())
		r.res.OutputDir = r.pc.OutputDir
		r.res.Modules = ms.RelativeRoots()
		for _, d := range tmpl.OutputDirs {
			r.res.OutputDirs = append(r.res.OutputDirs, displayPath(r.req.ModulePath, ms.SourceRoot, d))
		}
		r.logger.Info("Located modules",
			logfields.Path(ms.SourceRoot),
			slog.Int("modules", len(ms.Roots)),
			slog.Int("schema_files", ms.SchemaFiles),
			logfields.OutputDir(r.res.OutputDir))
		return nil
	})
	if err != nil {
		return r.fail(err)
	}
	r.res.ReachedState = StateLocated
	return true
}

func (r *run) cleanStages(ctx context.Context) bool {
	if r.cancelled(ctx, StageBeforeClean) {
		return false
	}
	if err := r.runHooks(ctx, hooks.BeforeClean); err != nil {
		return r.hookError(err)
	}
	if r.cancelled(ctx, StageClean) {
		return false
	}
	err := r.stage(StageClean, func() error {
		for i, dir := range r.pc.OutputDirs {
			if _, err := r.o.workspace.Prepare(dir, true); err != nil {
				return err
			}
			r.res.CleanedDirs = append(r.res.CleanedDirs, r.res.OutputDirs[i])
		}
		return nil
	})
	if err != nil {
		return r.fail(err)
	}
	r.res.ReachedState = StateCleaned
	if r.cancelled(ctx, StageAfterClean) {
		return false
	}
	if err := r.runHooks(ctx, hooks.AfterClean); err != nil {
		return r.hookError(err)
	}
	return true
}

func (r *run) prepareStage(ctx context.Context) bool {
	if r.cancelled(ctx, StagePrepare) {
		return false
	}
	err := r.stage(StagePrepare, func() error {
		for _, dir := range r.pc.OutputDirs {
			if _, err := r.o.workspace.Prepare(dir, false); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return r.fail(err)
	}
	return true
}

func (r *run) generateStages(ctx context.Context) {
	if r.cancelled(ctx, StageBeforeGenerate) {
		return
	}
	if err := r.runHooks(ctx, hooks.BeforeGenerate); err != nil {
		r.hookError(err)
		return
	}
	if r.cancelled(ctx, StageGenerate) {
		return
	}

	before := r.snapshot()
	var inv *compiler.InvocationResult
	err := r.stage(StageGenerate, func() error {
		var err error
		inv, err = r.o.compiler.Invoke(ctx, r.pc.Modules, r.pc.Template)
		if err == nil && !inv.Succeeded() {
			return errors.CompilerFailedError("compiler exited with non-zero status").Build()
		}
		return err
	})
	r.pc.Invocation = inv
	r.res.Invocation = inv
	switch {
	case inv == nil && err == nil:
		r.fail(errors.InternalError("compiler returned no invocation result").Build())
		return
	case inv == nil, err != nil && !errors.HasCategory(err, errors.CategoryCompilerFailed):
		r.fail(err)
		return
	}
	r.res.ReachedState = StateGenerated

	r.gatherTelemetry(ctx)
	if r.cancelled(ctx, StageAfterGenerate) {
		return
	}
	if hookErr := r.runHooks(ctx, hooks.AfterGenerate); hookErr != nil {
		var hf *hooks.HookFailure
		if !stderrors.As(hookErr, &hf) {
			r.fail(hookErr)
			return
		}
		r.res.HookFailures = append(r.res.HookFailures, hf)
	}
	r.res.WrittenFiles = r.writtenFiles(before)

	if !inv.Succeeded() {
		code := inv.ExitCode
		if code <= 0 {
			code = errors.ExitGeneral
		}
		r.fail(errors.CompilerFailedError(fmt.Sprintf("compiler exited with status %d", inv.ExitCode)).
			WithContext("exit_code", inv.ExitCode).
			WithContext("stderr", lastLine(inv.Stderr)).
			Build())
		r.res.ExitCode = code
		return
	}

	r.res.Success = true
	r.res.ExitCode = errors.ExitOK
	r.res.Message = fmt.Sprintf("Generated %d file%s into %s", len(r.res.WrittenFiles), plural(len(r.res.WrittenFiles), "", "s"), r.res.OutputDir)
	if n := len(r.res.HookFailures); n > 0 {
		r.res.Message += fmt.Sprintf(" (%d after-generate hook failure%s)", n, plural(n, "", "s"))
	}
}

func (r *run) snapshot() map[string]workspace.Snapshot {
	snaps := make(map[string]workspace.Snapshot, len(r.pc.OutputDirs))
	for _, d := range r.pc.OutputDirs {
		snaps[d] = workspace.TakeSnapshot(d)
	}
	return snaps
}

// writtenFiles lists new or modified files, relative to the source root.
func (r *run) writtenFiles(before map[string]workspace.Snapshot) []string {
	var out []string
	for _, d := range r.pc.OutputDirs {
		for _, f := range workspace.WrittenFiles(before[d], workspace.TakeSnapshot(d)) {
			out = append(out, relativeTo(r.pc.SourceRoot(), filepath.Join(d, filepath.FromSlash(f))))
		}
	}
	return out
}

func (r *run) gatherTelemetry(ctx context.Context) {
	if !r.o.telemetry {
		return
	}
	t := Telemetry{Env: compiler.EnvSubset()}
	if p, ok := r.o.compiler.(VersionProber); ok {
		t.ToolVersion = p.ToolVersion(ctx)
		t.PluginVersion = p.PluginVersion(ctx, r.pc.Template)
	}
	if rev, ok := workspace.SourceRevision(r.pc.SourceRoot()); ok {
		t.SourceRevision = rev
	}
	r.res.Telemetry = t
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
