package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/wonny/insiderperf/internal/contracts"
	"github.com/wonny/insiderperf/internal/pipeline"
	"github.com/wonny/insiderperf/internal/runner"
	"github.com/wonny/insiderperf/internal/store"
	"github.com/wonny/insiderperf/pkg/redis"
)

// LatestRun returns the summary of the most recent run
// GET /api/runs/latest
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.latestRun(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// LatestDiagnostics returns the latest run's diagnostics, optionally by code
// GET /api/runs/latest/diagnostics?code=NO_VALID_TRANSACTIONS
func (h *Handler) LatestDiagnostics(w http.ResponseWriter, r *http.Request) {
	run, ok := h.latestRun(w, r)
	if !ok {
		return
	}

	code := contracts.DiagnosticCode(r.URL.Query().Get("code"))
	diags, err := h.repo.ListDiagnostics(r.Context(), run.RunID, code)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list diagnostics")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve diagnostics")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":      run.RunID,
		"count":       len(diags),
		"diagnostics": diags,
	})
}

// RecomputeResponse is the response of POST /api/runs
type RecomputeResponse struct {
	RunID       string                      `json:"run_id"`
	ConfigHash  string                      `json:"config_hash"`
	Investors   int                         `json:"investors"`
	Diagnostics int                         `json:"diagnostics"`
	DurationMS  int64                       `json:"duration_ms"`
	Coverage    *contracts.CoverageSnapshot `json:"coverage"`
}

// Recompute runs the pipeline over the stored inputs
// POST /api/runs
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.runner == nil {
		respondError(w, http.StatusServiceUnavailable, "Recompute is disabled")
		return
	}

	// a busy runner answers before the limiter so the attempt costs no slot
	if h.runner.Running() {
		respondError(w, http.StatusConflict, runner.ErrRunInProgress.Error())
		return
	}

	if h.limiter != nil {
		allowed, remaining, err := h.limiter.Allow(ctx, h.limitCfg)
		if err != nil {
			h.logger.WithError(err).Error("Rate limit check failed")
			respondError(w, http.StatusInternalServerError, "Rate limit check failed")
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			respondError(w, http.StatusTooManyRequests, "Recompute limit reached, try again later")
			return
		}
	}

	result, err := h.runner.Recompute(ctx)
	switch {
	case errors.Is(err, runner.ErrRunInProgress):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, pipeline.ErrMalformedInput):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		h.logger.WithError(err).Error("Recompute failed")
		respondError(w, http.StatusInternalServerError, "Recompute failed")
		return
	}

	respondJSON(w, http.StatusCreated, RecomputeResponse{
		RunID:       result.RunID,
		ConfigHash:  result.ConfigHash,
		Investors:   len(result.Profiles),
		Diagnostics: len(result.Diagnostics),
		DurationMS:  result.Duration.Milliseconds(),
		Coverage:    result.Coverage,
	})
}

// latestRun loads the latest run summary through the cache and writes the
// error response itself when there is none
func (h *Handler) latestRun(w http.ResponseWriter, r *http.Request) (*store.Run, bool) {
	var run store.Run
	err := h.cache.GetOrSet(r.Context(), redis.LatestRunKey(), &run, redis.TTLShort, func() (interface{}, error) {
		return h.repo.LatestRun(r.Context())
	})
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No attribution run yet")
		return nil, false
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve latest run")
		return nil, false
	}
	return &run, true
}
