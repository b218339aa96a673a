package hooks

import (
	"context"
	"fmt"
)

// Hook is a unit of customization bound to a stage. Run may mutate pc and
// returns an error to fail the stage.
type Hook interface {
	Name() string
	Run(ctx context.Context, pc *PipelineContext) error
}

type funcHook struct {
	name string
	fn   func(ctx context.Context, pc *PipelineContext) error
}

func (h funcHook) Name() string { return h.name }

func (h funcHook) Run(ctx context.Context, pc *PipelineContext) error { return h.fn(ctx, pc) }

// Func wraps fn as a named Hook.
func Func(name string, fn func(ctx context.Context, pc *PipelineContext) error) Hook {
	return funcHook{name: name, fn: fn}
}

// Registration binds a hook to a stage.
type Registration struct {
	Stage Stage
	Hook  Hook
}

// HookSource discovers hooks to register.
type HookSource interface {
	Discover() ([]Registration, error)
}

// HookFailure reports the first failing hook of a stage.
type HookFailure struct {
	Stage Stage
	Index int
	Name  string
	Cause error
}

func (f *HookFailure) Error() string {
	return fmt.Sprintf("hook %q (#%d) failed at %s: %v", f.Name, f.Index, f.Stage, f.Cause)
}

func (f *HookFailure) Unwrap() error { return f.Cause }
