package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wonny/insiderperf/internal/contracts"
	"github.com/wonny/insiderperf/internal/pipeline"
	"github.com/wonny/insiderperf/internal/store"
	"github.com/wonny/insiderperf/pkg/logger"
	"github.com/wonny/insiderperf/pkg/redis"
)

// Repository is the read side of the store used by the API
type Repository interface {
	LatestRun(ctx context.Context) (*store.Run, error)
	ListProfiles(ctx context.Context, runID string) ([]contracts.InvestorProfile, error)
	GetProfiles(ctx context.Context, runID, ownerCIK string) ([]contracts.InvestorProfile, error)
	ListTransactions(ctx context.Context, runID, ownerCIK string) ([]contracts.TransactionRecord, error)
	ListDiagnostics(ctx context.Context, runID string, code contracts.DiagnosticCode) ([]contracts.Diagnostic, error)
}

// Recomputer triggers a new attribution run
type Recomputer interface {
	Recompute(ctx context.Context) (*pipeline.RunResult, error)
	Running() bool
}

// Handler serves profile, run and diagnostic endpoints
// ⭐ SSOT: API handlers live in this struct only
type Handler struct {
	repo     Repository
	runner   Recomputer
	cache    *redis.Cache
	limiter  *redis.RateLimiter
	limitCfg redis.RateLimitConfig
	logger   *logger.Logger
}

// NewHandler creates a handler. runner may be nil to disable POST /api/runs;
// a nil cache reads straight through to the repository.
func NewHandler(
	repo Repository,
	runner Recomputer,
	cache *redis.Cache,
	limiter *redis.RateLimiter,
	limitCfg redis.RateLimitConfig,
	log *logger.Logger,
) *Handler {
	if cache == nil {
		cache = redis.NewCache(redis.NewFromClient(nil), "")
	}
	return &Handler{
		repo:     repo,
		runner:   runner,
		cache:    cache,
		limiter:  limiter,
		limitCfg: limitCfg,
		logger:   log.WithField("module", "api"),
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
