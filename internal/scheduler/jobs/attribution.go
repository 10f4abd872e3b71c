package jobs

import (
	"context"
	"errors"

	"github.com/wonny/insiderperf/internal/pipeline"
	"github.com/wonny/insiderperf/internal/runner"
	"github.com/wonny/insiderperf/pkg/logger"
)

// Recomputer runs one attribution over the stored inputs
type Recomputer interface {
	Recompute(ctx context.Context) (*pipeline.RunResult, error)
}

// AttributionJob recomputes investor profiles on a schedule
// ⭐ SSOT: the scheduled recompute is this job only
type AttributionJob struct {
	runner   Recomputer
	schedule string
	logger   *logger.Logger
}

// NewAttributionJob creates the job with a six-field cron expression
func NewAttributionJob(r Recomputer, schedule string, log *logger.Logger) *AttributionJob {
	return &AttributionJob{
		runner:   r,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *AttributionJob) Name() string {
	return "attribution"
}

// Schedule returns the cron schedule
func (j *AttributionJob) Schedule() string {
	return j.schedule
}

// Run executes one recompute. A run already started over the API is not an error.
func (j *AttributionJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled attribution run")

	result, err := j.runner.Recompute(ctx)
	if errors.Is(err, runner.ErrRunInProgress) {
		j.logger.Info("Attribution run already in progress, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	j.logger.WithRun(result.RunID).WithFields(logger.Fields{
		"investors": len(result.Profiles),
		"duration":  result.Duration,
	}).Info("Scheduled attribution run completed")

	return nil
}
