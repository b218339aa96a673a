package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/getbuf/internal/logfields"
	"git.home.luguber.info/inful/getbuf/internal/metrics"
	"git.home.luguber.info/inful/getbuf/internal/pipeline"
	"git.home.luguber.info/inful/getbuf/internal/report"
)

// Observer buffers stage events of the current run and persists the run when
// it completes. It implements pipeline.Observer.
type Observer struct {
	store      Store
	modulePath string
	logger     *slog.Logger

	mu     sync.Mutex
	stages []StageEvent
}

// NewObserver records runs of modulePath into store.
func NewObserver(store Store, modulePath string, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{store: store, modulePath: modulePath, logger: logger}
}

func (o *Observer) OnStageStart(pipeline.StageName) {}

func (o *Observer) OnStageComplete(stage pipeline.StageName, d time.Duration, result metrics.ResultLabel) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, StageEvent{Stage: string(stage), Result: string(result), Duration: d, At: time.Now()})
}

func (o *Observer) OnRunComplete(res *pipeline.Result) {
	o.mu.Lock()
	stages := o.stages
	o.stages = nil
	o.mu.Unlock()

	doc, err := json.Marshal(report.NewDocument(res))
	if err != nil {
		o.logger.Warn("Encode run document failed", logfields.RunID(res.RunID), logfields.Error(err))
	}
	rec := RunRecord{
		RunID:      res.RunID,
		StartedAt:  res.StartedAt,
		Duration:   res.Duration,
		Success:    res.Success,
		Category:   string(res.Category),
		ExitCode:   res.ExitCode,
		OutputDir:  res.OutputDir,
		Message:    res.Message,
		ModulePath: o.modulePath,
		Document:   doc,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.store.RecordRun(ctx, rec, stages); err != nil {
		o.logger.Warn("Record run history failed", logfields.RunID(res.RunID), logfields.Error(err))
	}
}
