package compiler

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"git.home.luguber.info/inful/getbuf/internal/foundation/errors"
	"git.home.luguber.info/inful/getbuf/internal/locator"
	"git.home.luguber.info/inful/getbuf/internal/logfields"
)

// DefaultBinary is the compiler executable looked up when none is configured.
const DefaultBinary = "buf"

// ExecutableResolver turns an executable name into a runnable path.
type ExecutableResolver interface {
	Resolve(name string) (string, error)
}

// ResolverFunc adapts a function to ExecutableResolver.
type ResolverFunc func(name string) (string, error)

func (f ResolverFunc) Resolve(name string) (string, error) { return f(name) }

// PathResolver resolves executables on $PATH.
var PathResolver ExecutableResolver = ResolverFunc(exec.LookPath)

// InvocationResult captures one compiler execution. It is never mutated after Invoke returns.
type InvocationResult struct {
	Argv      []string
	Dir       string
	ExitCode  int
	Stdout    string
	Stderr    string
	StartedAt time.Time
	Duration  time.Duration
}

// Succeeded reports whether the compiler exited with status 0.
func (r *InvocationResult) Succeeded() bool { return r != nil && r.ExitCode == 0 }

// Invoker builds and runs `buf generate`.
type Invoker struct {
	binary    string
	resolver  ExecutableResolver
	extraArgs []string
	env       map[string]string
	timeout   time.Duration
	stream    io.Writer
	policy    Policy
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithBinary overrides the compiler executable name or path.
func WithBinary(name string) Option {
	return func(i *Invoker) {
		if name != "" {
			i.binary = name
		}
	}
}

// WithResolver injects the executable lookup.
func WithResolver(r ExecutableResolver) Option {
	return func(i *Invoker) {
		if r != nil {
			i.resolver = r
		}
	}
}

// WithExtraArgs appends arguments after the generated argument vector.
func WithExtraArgs(args ...string) Option {
	return func(i *Invoker) { i.extraArgs = append(i.extraArgs, args...) }
}

// WithEnv adds environment variables on top of the process environment.
func WithEnv(env map[string]string) Option {
	return func(i *Invoker) {
		if i.env == nil {
			i.env = map[string]string{}
		}
		maps.Copy(i.env, env)
	}
}

// WithTimeout bounds a single invocation. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) { i.timeout = d }
}

// WithStream tees compiler stdout and stderr to w while still capturing them.
func WithStream(w io.Writer) Option {
	return func(i *Invoker) { i.stream = w }
}

// WithPolicy restricts the plugins a template may reference.
func WithPolicy(p Policy) Option {
	return func(i *Invoker) { i.policy = p }
}

// NewInvoker creates an invoker for the buf executable on $PATH unless overridden.
func NewInvoker(opts ...Option) *Invoker {
	i := &Invoker{
		binary:   DefaultBinary,
		resolver: PathResolver,
		policy:   DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Binary returns the configured compiler executable name.
func (i *Invoker) Binary() string { return i.binary }

// Template parses the generation config attached to ms.
func (i *Invoker) Template(ms *locator.ModuleSet) (*Template, error) {
	if ms == nil {
		return nil, errors.InternalError("template requested without a module set").Build()
	}
	return ParseTemplate(ms.ConfigPath, ms.SourceRoot, i.policy)
}

// WorkDir returns the directory the compiler runs in: the parent of the module roots.
func WorkDir(ms *locator.ModuleSet) string {
	if ms.SingleModule() || len(ms.Roots) == 0 {
		return filepath.Dir(ms.SourceRoot)
	}
	return filepath.Dir(ms.Roots[0])
}

// Args builds the argument vector (without the executable) for ms and tmpl.
// Paths other than the template are relative to WorkDir so the vector is
// stable across checkouts.
func Args(ms *locator.ModuleSet, tmpl *Template, extra []string) []string {
	dir := WorkDir(ms)
	input := relTo(dir, ms.SourceRoot)
	args := []string{"generate", input, "--template", tmpl.Path, "--output", input}
	if !ms.SingleModule() {
		for _, root := range ms.Roots {
			args = append(args, "--path", relTo(dir, root))
		}
	}
	return append(args, extra...)
}

func relTo(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}

// Invoke runs the compiler once. A non-zero exit is reported through
// InvocationResult.ExitCode with a nil error. Errors are tool_not_found when
// the executable cannot be resolved and cancelled when ctx ends first.
func (i *Invoker) Invoke(ctx context.Context, ms *locator.ModuleSet, tmpl *Template) (*InvocationResult, error) {
	if ms == nil || tmpl == nil {
		return nil, errors.InternalError("invoke requires a module set and a template").Build()
	}
	path, err := i.resolver.Resolve(i.binary)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryToolNotFound, "compiler executable not found").
			Fatal().WithContext("binary", i.binary).Build()
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	args := Args(ms, tmpl, i.extraArgs)
	res := &InvocationResult{
		Argv: append([]string{i.binary}, args...),
		Dir:  WorkDir(ms),
	}

	// #nosec G204 -- path comes from the resolver, args are built from located paths
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = res.Dir
	cmd.Env = i.environ()
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if i.stream != nil {
		cmd.Stdout = io.MultiWriter(&stdout, i.stream)
		cmd.Stderr = io.MultiWriter(&stderr, i.stream)
	}

	slog.Debug("Invoking compiler", logfields.Command(res.Argv), logfields.Path(res.Dir))
	res.StartedAt = time.Now()
	runErr := cmd.Run()
	res.Duration = time.Since(res.StartedAt)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		msg := "compiler invocation cancelled"
		if stderrors.Is(ctxErr, context.DeadlineExceeded) {
			msg = "compiler invocation timed out"
		}
		return res, errors.WrapError(ctxErr, errors.CategoryCancelled, msg).
			Fatal().WithContext("binary", i.binary).Build()
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		res.ExitCode = 0
	case stderrors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return nil, errors.WrapError(runErr, errors.CategoryInternal, "start compiler").
			Fatal().WithContext("binary", path).Build()
	}

	slog.Debug("Compiler finished",
		logfields.ExitCode(res.ExitCode),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res, nil
}

func (i *Invoker) environ() []string {
	env := os.Environ()
	keys := slices.Sorted(maps.Keys(i.env))
	for _, k := range keys {
		env = append(env, k+"="+i.env[k])
	}
	return env
}
