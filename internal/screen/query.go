package screen

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/wonny/insiderperf/internal/contracts"
	"github.com/wonny/insiderperf/internal/marketcap"
)

// ParseQuery reads criteria from URL query parameters, e.g.
// min_vs_sp500_6m=0.05&max_avg_days_between=90&sector=Energy&cap_category=Mega+Cap
func ParseQuery(q url.Values) (Criteria, error) {
	var c Criteria

	for _, h := range contracts.AllHorizons() {
		suffix := "_" + strings.ToLower(h.Label())
		for name, dst := range map[string]**float64{
			"min_vs_sp500" + suffix:  &c.MinVsMarket[h],
			"max_vs_sp500" + suffix:  &c.MaxVsMarket[h],
			"min_vs_sector" + suffix: &c.MinVsSector[h],
		} {
			if err := parseFloat(q, name, dst); err != nil {
				return Criteria{}, err
			}
		}
	}

	for name, dst := range map[string]**int{
		"min_transaction_count": &c.MinTransactionCount,
		"min_unique_years":      &c.MinUniqueYears,
		"min_companies":         &c.MinCompanies,
		"max_avg_days_between":  &c.MaxAvgDaysBetween,
	} {
		if err := parseInt(q, name, dst); err != nil {
			return Criteria{}, err
		}
	}

	for name, dst := range map[string]**float64{
		"min_transaction_value":     &c.MinTransactionValue,
		"min_avg_transaction_value": &c.MinAvgTransactionValue,
	} {
		if err := parseFloat(q, name, dst); err != nil {
			return Criteria{}, err
		}
	}

	c.Sectors = nonEmpty(q["sector"])
	for _, raw := range nonEmpty(q["cap_category"]) {
		bucket, err := parseCapBucket(raw)
		if err != nil {
			return Criteria{}, err
		}
		c.CapCategories = append(c.CapCategories, bucket)
	}

	return c, nil
}

func parseFloat(q url.Values, name string, dst **float64) error {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", name, raw)
	}
	*dst = &v
	return nil
}

func parseInt(q url.Values, name string, dst **int) error {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", name, raw)
	}
	*dst = &v
	return nil
}

func parseCapBucket(raw string) (contracts.CapBucket, error) {
	for _, b := range marketcap.Buckets() {
		if strings.EqualFold(raw, string(b)) {
			return b, nil
		}
	}
	return "", fmt.Errorf("invalid cap_category: %q", raw)
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
