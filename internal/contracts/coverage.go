package contracts

// CoverageSnapshot summarises how much of a run's input produced usable returns
// ⭐ SSOT: run-level data coverage passed from the validator to storage and the API
type CoverageSnapshot struct {
	TotalTransactions int                `json:"total_transactions"`
	ValidTransactions int                `json:"valid_transactions"` // positive adjusted value
	Coverage          map[string]float64 `json:"coverage"`           // per return column, 0.0 ~ 1.0
	QualityScore      float64            `json:"quality_score"`      // weighted, 0.0 ~ 1.0
}

// CoverageRate returns the unweighted mean coverage across all return columns
func (c *CoverageSnapshot) CoverageRate() float64 {
	if len(c.Coverage) == 0 {
		return 0.0
	}

	total := 0.0
	for _, rate := range c.Coverage {
		total += rate
	}

	return total / float64(len(c.Coverage))
}
