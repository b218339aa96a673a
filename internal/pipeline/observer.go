package pipeline

import (
	"time"

	"git.home.luguber.info/inful/getbuf/internal/metrics"
)

// Observer receives callbacks around stage execution and run completion.
type Observer interface {
	OnStageStart(stage StageName)
	OnStageComplete(stage StageName, d time.Duration, result metrics.ResultLabel)
	OnRunComplete(res *Result)
}

// NoopObserver ignores all callbacks.
type NoopObserver struct{}

func (NoopObserver) OnStageStart(StageName)                                        {}
func (NoopObserver) OnStageComplete(StageName, time.Duration, metrics.ResultLabel) {}
func (NoopObserver) OnRunComplete(*Result)                                         {}

// MultiObserver fans callbacks out in order.
type MultiObserver []Observer

func (m MultiObserver) OnStageStart(stage StageName) {
	for _, o := range m {
		o.OnStageStart(stage)
	}
}

func (m MultiObserver) OnStageComplete(stage StageName, d time.Duration, result metrics.ResultLabel) {
	for _, o := range m {
		o.OnStageComplete(stage, d, result)
	}
}

func (m MultiObserver) OnRunComplete(res *Result) {
	for _, o := range m {
		o.OnRunComplete(res)
	}
}

// RecorderObserver adapts a metrics.Recorder into an Observer.
type RecorderObserver struct{ Rec metrics.Recorder }

func (RecorderObserver) OnStageStart(StageName) {}

func (r RecorderObserver) OnStageComplete(stage StageName, d time.Duration, result metrics.ResultLabel) {
	if r.Rec == nil {
		return
	}
	r.Rec.ObserveStageDuration(string(stage), d)
	r.Rec.IncStageResult(string(stage), result)
}

func (r RecorderObserver) OnRunComplete(res *Result) {
	if r.Rec == nil {
		return
	}
	r.Rec.ObserveRunDuration(res.Duration)
	r.Rec.IncRunOutcome(res.Outcome())
	if res.Invocation != nil {
		r.Rec.ObserveInvocationDuration(res.Invocation.Duration, res.Invocation.ExitCode)
	}
	for _, hf := range res.HookFailures {
		r.Rec.IncHookFailure(string(hf.Stage))
	}
}
