// Package attribcfg holds the tunable settings of an attribution run.
package attribcfg

import "github.com/wonny/insiderperf/internal/contracts"

// Config is the complete attribution configuration
type Config struct {
	Meta            Meta            `yaml:"meta" json:"meta"`
	Benchmark       Benchmark       `yaml:"benchmark" json:"benchmark"`
	Horizons        Horizons        `yaml:"horizons" json:"horizons"`
	Validation      Validation      `yaml:"validation" json:"validation"`
	MarketCondition MarketCondition `yaml:"market_condition" json:"market_condition"`
}

// Meta identifies the configuration
type Meta struct {
	ConfigID string `yaml:"config_id" json:"config_id"`
	Version  string `yaml:"version" json:"version"`
}

// Benchmark names the broad-market column of the benchmark table
type Benchmark struct {
	MarketColumn string `yaml:"market_column" json:"market_column"`
}

// Horizons holds calendar-day offsets per horizon
type Horizons struct {
	OffsetDays6M  int `yaml:"offset_days_6m" json:"offset_days_6m"`
	OffsetDays1Y  int `yaml:"offset_days_1y" json:"offset_days_1y"`
	OffsetDays18M int `yaml:"offset_days_18m" json:"offset_days_18m"`
}

// Validation holds thresholds for suspicious-return diagnostics
type Validation struct {
	SuspiciousAbsReturn float64 `yaml:"suspicious_abs_return" json:"suspicious_abs_return"` // 5.0 = ±500%
	FlagZeroReturns     bool    `yaml:"flag_zero_returns" json:"flag_zero_returns"`
}

// MarketCondition holds 6M market-return thresholds for the Bull/Bear tag
type MarketCondition struct {
	BullThreshold float64 `yaml:"bull_threshold" json:"bull_threshold"` // >= is Bull
	BearThreshold float64 `yaml:"bear_threshold" json:"bear_threshold"` // <= is Bear
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Meta: Meta{
			ConfigID: "default",
			Version:  "1",
		},
		Benchmark: Benchmark{
			MarketColumn: "S&P 500",
		},
		Horizons: Horizons{
			OffsetDays6M:  contracts.Horizon6M.DefaultOffsetDays(),
			OffsetDays1Y:  contracts.Horizon1Y.DefaultOffsetDays(),
			OffsetDays18M: contracts.Horizon18M.DefaultOffsetDays(),
		},
		Validation: Validation{
			SuspiciousAbsReturn: 5.0,
			FlagZeroReturns:     true,
		},
		MarketCondition: MarketCondition{
			BullThreshold: 0.10,
			BearThreshold: -0.10,
		},
	}
}

// OffsetDays returns the offset configured for h
func (c *Config) OffsetDays(h contracts.Horizon) int {
	switch h {
	case contracts.Horizon6M:
		return c.Horizons.OffsetDays6M
	case contracts.Horizon1Y:
		return c.Horizons.OffsetDays1Y
	case contracts.Horizon18M:
		return c.Horizons.OffsetDays18M
	default:
		return 0
	}
}
