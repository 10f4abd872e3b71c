// Package screen applies the presentation layer's range predicates to investor profiles.
package screen

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/wonny/insiderperf/internal/contracts"
)

// Null fills used when a profile field is not computed
const (
	fillMinReturn = -100.0
	fillMaxReturn = 100.0
	fillMaxDays   = 365000
)

// Criteria holds optional bounds. A nil bound is not applied.
// Returns are fractions (0.05 = 5%), values are dollars.
type Criteria struct {
	MinVsMarket [contracts.NumHorizons]*float64 `json:"min_vs_market"`
	MaxVsMarket [contracts.NumHorizons]*float64 `json:"max_vs_market"`
	MinVsSector [contracts.NumHorizons]*float64 `json:"min_vs_sector"`

	MinTransactionCount *int `json:"min_transaction_count,omitempty"`
	MinUniqueYears      *int `json:"min_unique_years,omitempty"`
	MinCompanies        *int `json:"min_companies,omitempty"`
	MaxAvgDaysBetween   *int `json:"max_avg_days_between,omitempty"`

	MinTransactionValue    *float64 `json:"min_transaction_value,omitempty"`
	MinAvgTransactionValue *float64 `json:"min_avg_transaction_value,omitempty"`

	Sectors       []string              `json:"sectors,omitempty"`
	CapCategories []contracts.CapBucket `json:"cap_categories,omitempty"`
}

// Match reports whether p passes every bound
func (c *Criteria) Match(p *contracts.InvestorProfile) bool {
	for _, h := range contracts.AllHorizons() {
		hp := p.Horizon(h)
		if !atLeast(hp.VsMarket, fillMinReturn, c.MinVsMarket[h]) ||
			!atMost(hp.VsMarket, fillMaxReturn, c.MaxVsMarket[h]) ||
			!atLeast(hp.VsSector, fillMinReturn, c.MinVsSector[h]) {
			return false
		}
	}

	if !atLeastInt(&p.TransactionCount, c.MinTransactionCount) ||
		!atLeastInt(p.UniqueTransactionYears, c.MinUniqueYears) ||
		!atLeastInt(p.NumberOfCompanies, c.MinCompanies) {
		return false
	}
	if c.MaxAvgDaysBetween != nil && intOr(p.AvgDaysBetweenTransactions, fillMaxDays) > *c.MaxAvgDaysBetween {
		return false
	}
	if !atLeast(p.MinTransactionValue, 0, c.MinTransactionValue) ||
		!atLeast(p.AvgTransactionValue, 0, c.MinAvgTransactionValue) {
		return false
	}

	if len(c.Sectors) > 0 && !contains(c.Sectors, p.MostActiveSector) {
		return false
	}
	if len(c.CapCategories) > 0 && !contains(c.CapCategories, p.MostCommonCompanyCapCategory) {
		return false
	}
	return true
}

// Apply returns the profiles that match c, in input order
func Apply(profiles []contracts.InvestorProfile, c Criteria) []contracts.InvestorProfile {
	out := make([]contracts.InvestorProfile, 0, len(profiles))
	for i := range profiles {
		if c.Match(&profiles[i]) {
			out = append(out, profiles[i])
		}
	}
	return out
}

// Sort orders profiles by Return_vs_SP500_6M descending, nulls last.
// Ties keep their input order.
func Sort(profiles []contracts.InvestorProfile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		a, b := profiles[i].ReturnVsSP5006M, profiles[j].ReturnVsSP5006M
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}

// Key is a stable digest of the criteria, used as a cache key
func (c *Criteria) Key() string {
	norm := *c
	norm.Sectors = sortedCopy(c.Sectors)
	norm.CapCategories = sortedCopy(c.CapCategories)

	data, _ := json.Marshal(norm)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func atLeast(v *float64, fill float64, bound *float64) bool {
	if bound == nil {
		return true
	}
	return floatOr(v, fill) >= *bound
}

func atMost(v *float64, fill float64, bound *float64) bool {
	if bound == nil {
		return true
	}
	return floatOr(v, fill) <= *bound
}

func atLeastInt(v *int, bound *int) bool {
	if bound == nil {
		return true
	}
	return intOr(v, 0) >= *bound
}

func floatOr(v *float64, fill float64) float64 {
	if v == nil {
		return fill
	}
	return *v
}

func intOr(v *int, fill int) int {
	if v == nil {
		return fill
	}
	return *v
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func sortedCopy[T ~string](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	out := append([]T(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
