package scheduler

import (
	"context"
	"time"
)

// historyLimit bounds the results kept per job
const historyLimit = 100

// Job is a unit of scheduled work: the attribution recompute or housekeeping
// ⭐ SSOT: the job interface is defined here only
type Job interface {
	Name() string
	Run(ctx context.Context) error
	// Schedule is a six-field cron expression, seconds first ("0 30 22 * * 1-5") or a descriptor ("@daily")
	Schedule() string
}

// JobResult records one trigger of a job. A skipped trigger never ran
// because the previous one was still active.
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Skipped   bool          `json:"skipped,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// History is a bounded, oldest-first log of job results. Callers synchronize.
type History struct {
	results []JobResult
	limit   int
}

func newHistory(limit int) *History {
	return &History{limit: limit}
}

// Record appends r, dropping the oldest result once the limit is reached
func (h *History) Record(r JobResult) {
	if h.limit > 0 && len(h.results) == h.limit {
		copy(h.results, h.results[1:])
		h.results = h.results[:len(h.results)-1]
	}
	h.results = append(h.results, r)
}

// Latest returns up to n results, newest first
func (h *History) Latest(n int) []JobResult {
	n = min(n, len(h.results))
	out := make([]JobResult, 0, max(n, 0))
	for i := len(h.results) - 1; len(out) < n; i-- {
		out = append(out, h.results[i])
	}
	return out
}

// Len is the number of results kept
func (h *History) Len() int {
	return len(h.results)
}

// HistorySummary condenses a history. Skipped triggers count toward Total
// but not toward the success rate.
type HistorySummary struct {
	Total       int
	Succeeded   int
	Failed      int
	Skipped     int
	LastRun     *time.Time
	LastSuccess *time.Time
	LastFailure *time.Time
}

// SuccessRate is Succeeded over executed triggers, 0 when none executed
func (s HistorySummary) SuccessRate() float64 {
	executed := s.Succeeded + s.Failed
	if executed == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(executed)
}

// Summary walks the history once
func (h *History) Summary() HistorySummary {
	sum := HistorySummary{Total: len(h.results)}
	for i := range h.results {
		r := &h.results[i]
		start := r.StartTime
		switch {
		case r.Skipped:
			sum.Skipped++
			continue
		case r.Success:
			sum.Succeeded++
			sum.LastSuccess = &start
		default:
			sum.Failed++
			sum.LastFailure = &start
		}
		sum.LastRun = &start
	}
	return sum
}
