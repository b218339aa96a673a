// Package errors provides the classified error primitives used across getbuf.
//
// Every failure a generation run can produce carries one ErrorCategory:
//
//   - not_found, invalid_config: bad module path or generation config
//   - permission_denied, unsafe_clean: workspace preparation
//   - tool_not_found, compiler_failed: the external compiler
//   - hook_failure, cancelled, internal
//
// Example usage:
//
//	err := errors.UnsafeCleanError("output directory outside project root").
//		WithContext("output_dir", dir).
//		WithContext("project_root", root).
//		Build()
//
// The CLIErrorAdapter maps categories to process exit codes.
package errors
