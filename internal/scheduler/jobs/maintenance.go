package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/insiderperf/pkg/logger"
)

// RunPruner deletes old runs
type RunPruner interface {
	PruneRuns(ctx context.Context, keep int) (int64, error)
}

// RunRetentionJob keeps only the most recent runs in the database
type RunRetentionJob struct {
	store  RunPruner
	keep   int
	logger *logger.Logger
}

// NewRunRetentionJob creates a new retention job
func NewRunRetentionJob(store RunPruner, keep int, log *logger.Logger) *RunRetentionJob {
	return &RunRetentionJob{
		store:  store,
		keep:   keep,
		logger: log,
	}
}

// Name returns the job name
func (j *RunRetentionJob) Name() string {
	return "run_retention"
}

// Schedule returns the cron schedule (Sundays at 3 AM)
func (j *RunRetentionJob) Schedule() string {
	return "0 0 3 * * 0"
}

// Run executes the cleanup
func (j *RunRetentionJob) Run(ctx context.Context) error {
	if j.keep < 1 {
		return fmt.Errorf("run retention must keep at least one run, got %d", j.keep)
	}

	removed, err := j.store.PruneRuns(ctx, j.keep)
	if err != nil {
		return err
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Old attribution runs pruned")
	}

	return nil
}
