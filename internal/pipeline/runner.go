package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/personalweb03/services/internal/history"
	"github.com/personalweb03/services/internal/model"
)

// Exit codes of a tracked run.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Recorder persists finished runs. *history.Store implements it.
type Recorder interface {
	RecordRun(ctx context.Context, r history.Run) error
	RecordProjectHours(ctx context.Context, runID string, collectedAt time.Time, rows []model.ProjectHours) error
}

// Runner executes services one after another and records each run.
type Runner struct {
	// Recorder may be nil to disable the run history.
	Recorder Recorder
	Logger   *zap.Logger
	Now      func() time.Time
	NewID    func() string
}

// Track runs fn as one run of service and returns its exit code. Failing to
// record the run is logged but does not change the exit code.
func (r *Runner) Track(ctx context.Context, service string, fn func(ctx context.Context, runID string) error) int {
	newID := r.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	run := history.Run{
		ID:        newID(),
		Service:   service,
		StartedAt: nowOrDefault(r.Now),
	}
	log := r.Logger.With(zap.String("service", service), zap.String("service_run_id", run.ID))

	err := fn(ctx, run.ID)
	run.FinishedAt = nowOrDefault(r.Now)
	if err != nil {
		run.ExitCode = ExitFailure
		run.Error = err.Error()
		log.Error("Service failed", zap.Error(err), zap.Duration("elapsed", run.Duration()))
	} else {
		log.Info("Service finished", zap.Duration("elapsed", run.Duration()))
	}

	if r.Recorder != nil {
		if rerr := r.Recorder.RecordRun(ctx, run); rerr != nil {
			log.Warn("Failed to record run history", zap.Error(rerr))
		}
	}
	return run.ExitCode
}

// RecordHours stores the rows of a toggl run when a Recorder is set.
func (r *Runner) RecordHours(ctx context.Context, runID string, res *TogglResult) {
	if r.Recorder == nil || res == nil {
		return
	}
	if err := r.Recorder.RecordProjectHours(ctx, runID, res.CollectedAt, res.Report.Projects); err != nil {
		r.Logger.Warn("Failed to record project hours", zap.Error(err))
	}
}
