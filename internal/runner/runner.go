// Package runner recomputes attribution from stored inputs and persists the run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wonny/insiderperf/internal/attribcfg"
	"github.com/wonny/insiderperf/internal/pipeline"
	"github.com/wonny/insiderperf/pkg/logger"
	"github.com/wonny/insiderperf/pkg/redis"
)

// ErrRunInProgress is returned when a recompute is requested while one is running
var ErrRunInProgress = errors.New("attribution run already in progress")

// Repository is the persistence the runner needs
type Repository interface {
	LoadInput(ctx context.Context) (pipeline.Input, error)
	SaveRun(ctx context.Context, result *pipeline.RunResult, configID string) error
}

// Runner performs load → pipeline → save. At most one run is active at a time.
type Runner struct {
	repo        Repository
	pipeline    *pipeline.Pipeline
	attribution *attribcfg.Config
	workers     int
	cache       *redis.Cache
	logger      *logger.Logger

	mu      sync.Mutex
	running atomic.Bool
}

// New creates a runner. cache may be nil; when set it is flushed after every saved run.
func New(repo Repository, p *pipeline.Pipeline, attribution *attribcfg.Config, workers int, cache *redis.Cache, log *logger.Logger) *Runner {
	if attribution == nil {
		attribution = attribcfg.Default()
	}
	return &Runner{
		repo:        repo,
		pipeline:    p,
		attribution: attribution,
		workers:     workers,
		cache:       cache,
		logger:      log.WithField("module", "runner"),
	}
}

// Running reports whether a recompute is active
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Recompute runs the pipeline over the stored inputs and saves the result
func (r *Runner) Recompute(ctx context.Context) (*pipeline.RunResult, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()
	r.running.Store(true)
	defer r.running.Store(false)

	in, err := r.repo.LoadInput(ctx)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}

	result, err := r.pipeline.Run(ctx, in, pipeline.RunConfig{
		Workers:     r.workers,
		Attribution: r.attribution,
	})
	if err != nil {
		return nil, err
	}

	if err := r.repo.SaveRun(ctx, result, r.attribution.Meta.ConfigID); err != nil {
		return nil, fmt.Errorf("save run %s: %w", result.RunID, err)
	}

	if r.cache != nil {
		removed, err := r.cache.Flush(ctx)
		if err != nil {
			// stale entries expire by TTL
			r.logger.WithError(err).Warn("Failed to invalidate profile cache")
		} else {
			r.logger.WithField("removed", removed).Debug("Profile cache invalidated")
		}
	}

	r.logger.WithRun(result.RunID).WithFields(logger.Fields{
		"investors":   len(result.Profiles),
		"diagnostics": len(result.Diagnostics),
	}).Info("Recompute saved")

	return result, nil
}
