package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/insiderperf/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	failures int32 // fail this many times, then succeed
	calls    atomic.Int32
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(ctx context.Context) error {
	if j.calls.Add(1) <= j.failures {
		return errors.New("transient failure")
	}
	return nil
}

func TestAddJob(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&fakeJob{name: "b", schedule: "0 30 22 * * 1-5"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@daily"}))

	assert.Error(t, s.AddJob(&fakeJob{name: "a", schedule: "@daily"}), "duplicate name")
	assert.Error(t, s.AddJob(&fakeJob{name: "c", schedule: "30 22 * * 1-5"}), "five fields")

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.GetAllJobs())
}

func TestRunJob_Retries(t *testing.T) {
	s := New(logger.Nop(), WithRetry(2, 0))
	job := &fakeJob{name: "attribution", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("attribution")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Empty(t, result.Error)

	_, err = s.RunJob("missing")
	assert.Error(t, err)
}

func TestRunJob_GivesUp(t *testing.T) {
	s := New(logger.Nop(), WithRetry(1, 0))
	job := &fakeJob{name: "attribution", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("attribution")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, "transient failure", result.Error)

	stats := s.GetJobStats()["attribution"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
	assert.Equal(t, "@daily", stats.Schedule)
}

func TestStop_CancelsRetryWait(t *testing.T) {
	s := New(logger.Nop(), WithRetry(5, time.Hour))
	job := &fakeJob{name: "attribution", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	done := make(chan JobResult, 1)
	go func() {
		result, _ := s.RunJob("attribution")
		done <- result
	}()

	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, time.Second, time.Millisecond)
	s.Stop()

	select {
	case result := <-done:
		assert.False(t, result.Success)
		assert.Equal(t, 1, result.Attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not stop")
	}
}

func TestNextRun(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&fakeJob{name: "attribution", schedule: "0 30 22 * * 1-5"}))

	s.Start()
	defer s.Stop()

	next, err := s.NextRun("attribution")
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 22, next.Hour())
	assert.Equal(t, 30, next.Minute())

	_, err = s.NextRun("missing")
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	h := newHistory(historyLimit)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 105; i++ {
		h.Record(JobResult{Attempts: i, Success: i%2 == 0, StartTime: base.Add(time.Duration(i) * time.Hour)})
	}

	assert.Equal(t, historyLimit, h.Len())
	latest := h.Latest(3)
	require.Len(t, latest, 3)
	assert.Equal(t, []int{104, 103, 102}, []int{latest[0].Attempts, latest[1].Attempts, latest[2].Attempts})

	sum := h.Summary()
	assert.Equal(t, 100, sum.Total)
	assert.Equal(t, 50, sum.Failed)
	assert.InDelta(t, 0.5, sum.SuccessRate(), 1e-9)
	require.NotNil(t, sum.LastRun)
	assert.Equal(t, base.Add(104*time.Hour), *sum.LastRun)
	assert.Equal(t, base.Add(103*time.Hour), *sum.LastFailure)

	assert.Empty(t, newHistory(historyLimit).Latest(5))
	assert.Zero(t, newHistory(historyLimit).Summary().SuccessRate())
}

func TestHistory_SkippedNotInRate(t *testing.T) {
	h := newHistory(10)
	h.Record(JobResult{Success: true})
	h.Record(JobResult{Skipped: true})
	h.Record(JobResult{Skipped: true})

	sum := h.Summary()
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 1.0, sum.SuccessRate())
}

func TestRunJob_OverlappingTriggerSkipped(t *testing.T) {
	s := New(logger.Nop(), WithRetry(0, 0))
	release := make(chan struct{})
	started := make(chan struct{})
	job := &blockingJob{fakeJob: fakeJob{name: "attribution", schedule: "@daily"}, started: started, release: release}
	require.NoError(t, s.AddJob(job))

	done := make(chan JobResult, 1)
	go func() {
		result, _ := s.RunJob("attribution")
		done <- result
	}()
	<-started

	skipped, err := s.RunJob("attribution")
	require.NoError(t, err)
	assert.True(t, skipped.Skipped)
	assert.False(t, skipped.Success)

	close(release)
	assert.True(t, (<-done).Success)

	latest, err := s.LatestResults("attribution", 5)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.False(t, latest[0].Skipped)
	assert.True(t, latest[1].Skipped)

	stats := s.GetJobStats()["attribution"]
	assert.Equal(t, 1, stats.SkippedCount)
	assert.Equal(t, 1.0, stats.SuccessRate)

	_, err = s.LatestResults("missing", 1)
	assert.Error(t, err)
}

type blockingJob struct {
	fakeJob
	started chan struct{}
	release chan struct{}
}

func (j *blockingJob) Run(ctx context.Context) error {
	close(j.started)
	<-j.release
	return nil
}
