// Package report renders a pipeline.Result for people and machines.
//
// The JSON document keeps the fields success, message, exitCode, stdout,
// stderr, outputDir and hookFailures stable, adds an error object on failure,
// and carries run telemetry next to them.
package report
