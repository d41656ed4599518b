package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skydelay/cascade-engine/internal/engine"
	"github.com/skydelay/cascade-engine/internal/metrics"
	"github.com/skydelay/cascade-engine/internal/models"
	"github.com/skydelay/cascade-engine/internal/store"
	"github.com/skydelay/cascade-engine/internal/utils"
)

// RecordSource supplies the flight batch for a run.
type RecordSource interface {
	Records(ctx context.Context) ([]models.FlightRecord, error)
}

// Runner executes the pipeline against a source and publishes the result.
type Runner struct {
	logger    *slog.Logger
	source    RecordSource
	pipeline  *engine.Pipeline
	store     *store.Store
	sink      store.Sink
	onPublish func(*models.Snapshot)
}

// NewRunner constructs a Runner. A nil sink publishes only to the in-process store.
func NewRunner(logger *slog.Logger, source RecordSource, pipeline *engine.Pipeline, st *store.Store, sink store.Sink) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = store.NoopSink{}
	}
	return &Runner{
		logger:   logger,
		source:   source,
		pipeline: pipeline,
		store:    st,
		sink:     sink,
	}
}

// OnPublish registers fn to be called after every successful publish.
func (r *Runner) OnPublish(fn func(*models.Snapshot)) {
	r.onPublish = fn
}

// RunOnce loads the batch, runs the pipeline, and publishes. On any failure the previously
// published snapshot stays current.
func (r *Runner) RunOnce(ctx context.Context) (*models.Snapshot, error) {
	if r.source == nil || r.pipeline == nil || r.store == nil {
		return nil, utils.NewAppError("runner.RunOnce", "runner not configured", nil)
	}

	start := time.Now()
	snap, err := r.run(ctx)
	duration := time.Since(start)
	if err != nil {
		metrics.ObservePipelineRun(duration, metrics.OutcomeError)
		r.logger.Error("pipeline run failed",
			slog.String("op", utils.OpOf(err)),
			slog.Any("error", err),
			slog.Duration("duration", duration),
		)
		return nil, err
	}

	metrics.ObservePipelineRun(duration, metrics.OutcomeSuccess)
	metrics.AddDroppedRecords(snap.Dropped)
	for table, rows := range snap.RowCounts() {
		metrics.SetPublishedRows(table, rows)
	}
	r.logger.Info("pipeline run published",
		slog.String("run_id", snap.RunID),
		slog.Duration("duration", duration),
		slog.Int("dropped", snap.Dropped),
	)
	if r.onPublish != nil {
		r.onPublish(snap)
	}
	return snap, nil
}

func (r *Runner) run(ctx context.Context) (*models.Snapshot, error) {
	records, err := r.source.Records(ctx)
	if err != nil {
		return nil, utils.NewAppError("runner.load", "load flight batch", err)
	}
	snap, err := r.pipeline.Run(ctx, records)
	if err != nil {
		return nil, utils.NewAppError("runner.pipeline", "pipeline", err)
	}
	if err := r.sink.Publish(ctx, snap); err != nil {
		return nil, utils.NewAppError("runner.sink", "publish to sink", err)
	}
	if err := r.store.Publish(snap); err != nil {
		return nil, utils.NewAppError("runner.store", "publish to store", err)
	}
	return snap, nil
}

// Loop re-runs the pipeline every interval until ctx is done. Failed runs are logged and the
// loop continues with the previous snapshot in place.
func (r *Runner) Loop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("refresh failed; keeping previous snapshot", slog.Any("error", err))
			}
		}
	}
}
