// Package pipeline sequences one generation run.
//
// The Orchestrator moves through Idle → Located → Cleaned (optional) →
// Generated → Reported and always returns a *Result, whether the run ended
// early or not:
//
//	locate (+ template parse)
//	before-clean hooks → clean → after-clean hooks   (clean requested)
//	prepare                                          (clean not requested)
//	before-generate hooks → compiler → after-generate hooks
//
// Locate, workspace and before-generate failures are terminal. A non-zero
// compiler exit still runs after-generate hooks; their failures are attached
// to the Result as secondary annotations and never replace the compiler's
// outcome. The context is checked between stages; cancellation yields a
// cancelled Result and skips the remaining hook stages.
package pipeline
