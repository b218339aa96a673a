// Package hooks provides the extension points of a generation run.
//
// A Registry holds hooks per Stage. Hooks at one stage run strictly in
// registration order against a shared *PipelineContext, so a mutation made by
// hook i is visible to hook i+1. The first failing hook stops the stage and is
// reported as a *HookFailure.
//
// Registries are explicit values injected into the pipeline. Hooks are
// usually discovered through HookSource implementations:
//
//	reg := hooks.NewRegistry()
//	if err := reg.Load(hooks.NewCommandSource(cfg.Hooks), notifier); err != nil {
//		return err
//	}
package hooks
