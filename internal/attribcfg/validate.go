package attribcfg

import (
	"fmt"
	"strings"
)

// ValidationError aborts the run
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning flags a legal but unusual setting
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Benchmark.MarketColumn) == "" {
		return ValidationError{"benchmark.market_column", "required"}
	}

	offsets := []struct {
		field string
		days  int
	}{
		{"horizons.offset_days_6m", cfg.Horizons.OffsetDays6M},
		{"horizons.offset_days_1y", cfg.Horizons.OffsetDays1Y},
		{"horizons.offset_days_18m", cfg.Horizons.OffsetDays18M},
	}
	for _, o := range offsets {
		if o.days <= 0 {
			return ValidationError{o.field, "must be > 0"}
		}
	}

	if cfg.Validation.SuspiciousAbsReturn <= 0 {
		return ValidationError{"validation.suspicious_abs_return", "must be > 0"}
	}

	if cfg.MarketCondition.BearThreshold >= cfg.MarketCondition.BullThreshold {
		return ValidationError{"market_condition", "bear_threshold must be < bull_threshold"}
	}

	return nil
}

// Warn returns non-fatal findings
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	h := cfg.Horizons
	if !(h.OffsetDays6M < h.OffsetDays1Y && h.OffsetDays1Y < h.OffsetDays18M) {
		warnings = append(warnings, Warning{
			Code:    "HORIZONS_NOT_INCREASING",
			Message: fmt.Sprintf("horizon offsets %d/%d/%d are not strictly increasing", h.OffsetDays6M, h.OffsetDays1Y, h.OffsetDays18M),
		})
	}

	if cfg.Validation.SuspiciousAbsReturn < 1 {
		warnings = append(warnings, Warning{
			Code:    "LOW_SUSPICIOUS_THRESHOLD",
			Message: fmt.Sprintf("suspicious_abs_return %.2f flags ordinary moves", cfg.Validation.SuspiciousAbsReturn),
		})
	}

	if cfg.MarketCondition.BullThreshold < 0 || cfg.MarketCondition.BearThreshold > 0 {
		warnings = append(warnings, Warning{
			Code:    "MARKET_CONDITION_SIGN",
			Message: "bull threshold should be positive and bear threshold negative",
		})
	}

	return warnings
}
