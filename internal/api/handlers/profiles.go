package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/insiderperf/internal/contracts"
	"github.com/wonny/insiderperf/internal/screen"
	"github.com/wonny/insiderperf/internal/store"
	"github.com/wonny/insiderperf/pkg/redis"
)

// ProfileList is the response of GET /api/profiles
type ProfileList struct {
	RunID    string                      `json:"run_id"`
	Total    int                         `json:"total"`
	Count    int                         `json:"count"`
	Profiles []contracts.InvestorProfile `json:"profiles"`
}

// ListProfiles returns the latest run's profiles that pass the query's
// screening criteria, sorted by Return_vs_SP500_6M descending
// GET /api/profiles?min_vs_sp500_6m=0.05&sector=Energy&limit=50
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	criteria, err := screen.ParseQuery(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, ok := h.latestRun(w, r)
	if !ok {
		return
	}

	var profiles []contracts.InvestorProfile
	err = h.cache.GetOrSet(ctx, redis.ProfileListKey(run.RunID, criteria.Key()), &profiles, redis.TTLMedium, func() (interface{}, error) {
		all, err := h.repo.ListProfiles(ctx, run.RunID)
		if err != nil {
			return nil, err
		}
		matched := screen.Apply(all, criteria)
		screen.Sort(matched)
		return matched, nil
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to list profiles")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve profiles")
		return
	}

	if profiles == nil {
		profiles = []contracts.InvestorProfile{}
	}
	total := len(profiles)
	if limit > 0 && limit < total {
		profiles = profiles[:limit]
	}

	respondJSON(w, http.StatusOK, ProfileList{
		RunID:    run.RunID,
		Total:    total,
		Count:    len(profiles),
		Profiles: profiles,
	})
}

// GetProfile returns the latest run's profiles for one owner code
// GET /api/profiles/{owner}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := mux.Vars(r)["owner"]

	run, ok := h.latestRun(w, r)
	if !ok {
		return
	}

	var profiles []contracts.InvestorProfile
	err := h.cache.GetOrSet(ctx, redis.ProfileKey(run.RunID, owner), &profiles, redis.TTLLong, func() (interface{}, error) {
		return h.repo.GetProfiles(ctx, run.RunID, owner)
	})
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Investor not found: "+owner)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("owner", owner).Error("Failed to get profile")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve profile")
		return
	}

	respondJSON(w, http.StatusOK, profiles)
}

// TransactionList is the response of GET /api/profiles/{owner}/transactions
type TransactionList struct {
	RunID        string                        `json:"run_id"`
	Owner        string                        `json:"owner"`
	Count        int                           `json:"count"`
	Transactions []contracts.TransactionRecord `json:"transactions"`
}

// GetProfileTransactions returns the enriched transactions behind a profile, most recent first
// GET /api/profiles/{owner}/transactions
func (h *Handler) GetProfileTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := mux.Vars(r)["owner"]

	run, ok := h.latestRun(w, r)
	if !ok {
		return
	}

	var records []contracts.TransactionRecord
	err := h.cache.GetOrSet(ctx, redis.ProfileTransactionsKey(run.RunID, owner), &records, redis.TTLLong, func() (interface{}, error) {
		return h.repo.ListTransactions(ctx, run.RunID, owner)
	})
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Investor not found: "+owner)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("owner", owner).Error("Failed to list transactions")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}

	respondJSON(w, http.StatusOK, TransactionList{
		RunID:        run.RunID,
		Owner:        owner,
		Count:        len(records),
		Transactions: records,
	})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid limit: " + strconv.Quote(raw))
	}
	return n, nil
}
