package history

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/getbuf/internal/metrics"
	"git.home.luguber.info/inful/getbuf/internal/pipeline"
)

var _ pipeline.Observer = (*Observer)(nil)

func TestObserverPersistsRun(t *testing.T) {
	s := newStore(t)
	obs := NewObserver(s, "./protos", nil)

	obs.OnStageStart(pipeline.StageLocate)
	obs.OnStageComplete(pipeline.StageLocate, time.Millisecond, metrics.ResultSuccess)
	obs.OnStageComplete(pipeline.StageGenerate, time.Second, metrics.ResultSuccess)
	obs.OnRunComplete(&pipeline.Result{
		RunID: "run-1", Success: true, Message: "ok", OutputDir: "gen",
		StartedAt: time.Now(), Duration: time.Second, State: pipeline.StateReported, ReachedState: pipeline.StateGenerated,
	})

	run, events, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.True(t, run.Success)
	assert.Equal(t, "./protos", run.ModulePath)
	assert.Len(t, events, 2)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(run.Document, &doc))
	assert.Equal(t, "run-1", doc["runId"])

	// Buffer resets between runs.
	obs.OnRunComplete(&pipeline.Result{RunID: "run-2", StartedAt: time.Now()})
	_, events, err = s.GetRun(context.Background(), "run-2")
	require.NoError(t, err)
	assert.Empty(t, events)
}
