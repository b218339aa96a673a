package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultSkipped  ResultLabel = "skipped"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for generation runs. Implementations
// may forward to Prometheus or similar backends.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome string) // outcome: success|<error category>
	ObserveInvocationDuration(d time.Duration, exitCode int)
	IncHookFailure(stage string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)   {}
func (NoopRecorder) IncStageResult(string, ResultLabel)           {}
func (NoopRecorder) ObserveRunDuration(time.Duration)             {}
func (NoopRecorder) IncRunOutcome(string)                         {}
func (NoopRecorder) ObserveInvocationDuration(time.Duration, int) {}
func (NoopRecorder) IncHookFailure(string)                        {}
