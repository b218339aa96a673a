package hooks

import (
	"context"
	"fmt"
	"sync"

	"git.home.luguber.info/inful/getbuf/internal/logfields"
)

// Registry holds ordered hooks per stage.
type Registry struct {
	mu    sync.RWMutex
	hooks map[Stage][]Hook
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[Stage][]Hook)}
}

// Register appends hook to stage. Duplicates are kept and run again.
func (r *Registry) Register(stage Stage, hook Hook) error {
	if !stage.IsValid() {
		return fmt.Errorf("unknown hook stage %q", stage)
	}
	if hook == nil {
		return fmt.Errorf("cannot register nil hook at %s", stage)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[stage] = append(r.hooks[stage], hook)
	return nil
}

// Load registers everything the sources discover, in order.
func (r *Registry) Load(sources ...HookSource) error {
	for i, src := range sources {
		if src == nil {
			continue
		}
		regs, err := src.Discover()
		if err != nil {
			return fmt.Errorf("discover hooks (source %d): %w", i, err)
		}
		for _, reg := range regs {
			if err := r.Register(reg.Stage, reg.Hook); err != nil {
				return fmt.Errorf("register hooks (source %d): %w", i, err)
			}
		}
	}
	return nil
}

// Count returns the number of hooks registered at stage.
func (r *Registry) Count(stage Stage) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks[stage])
}

// Names returns hook names at stage in run order.
func (r *Registry) Names(stage Stage) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.hooks[stage]))
	for _, h := range r.hooks[stage] {
		names = append(names, h.Name())
	}
	return names
}

// Run executes the hooks at stage sequentially. The first failure, including
// a recovered panic, stops the stage and is returned as *HookFailure.
// An unknown stage is a programming error and panics.
func (r *Registry) Run(ctx context.Context, stage Stage, pc *PipelineContext) error {
	if !stage.IsValid() {
		panic(fmt.Sprintf("hooks: Run called with unknown stage %q", stage))
	}
	r.mu.RLock()
	list := append([]Hook(nil), r.hooks[stage]...)
	r.mu.RUnlock()

	for i, h := range list {
		pc.log().Debug("Running hook", logfields.Stage(string(stage)), logfields.Hook(h.Name()), logfields.HookIndex(i))
		if err := runHook(ctx, h, pc); err != nil {
			pc.log().Warn("Hook failed",
				logfields.Stage(string(stage)),
				logfields.Hook(h.Name()),
				logfields.HookIndex(i),
				logfields.Error(err))
			return &HookFailure{Stage: stage, Index: i, Name: h.Name(), Cause: err}
		}
	}
	return nil
}

func runHook(ctx context.Context, h Hook, pc *PipelineContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return h.Run(ctx, pc)
}
