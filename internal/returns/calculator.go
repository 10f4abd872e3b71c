// Package returns computes per-transaction horizon returns against benchmark levels.
package returns

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wonny/insiderperf/internal/attribcfg"
	"github.com/wonny/insiderperf/internal/benchmark"
	"github.com/wonny/insiderperf/internal/contracts"
)

// Calculator enriches transactions with benchmark levels and horizon returns.
// It only reads the series and config, so one instance may serve many goroutines.
type Calculator struct {
	series *benchmark.Series
	cfg    *attribcfg.Config
}

// NewCalculator checks that the series is usable for cfg
func NewCalculator(series *benchmark.Series, cfg *attribcfg.Config) (*Calculator, error) {
	if series == nil || series.Len() == 0 {
		return nil, benchmark.ErrMissingSeriesData
	}
	if !series.HasColumn(cfg.Benchmark.MarketColumn) {
		return nil, fmt.Errorf("%w: market column %q", benchmark.ErrUnknownColumn, cfg.Benchmark.MarketColumn)
	}
	return &Calculator{series: series, cfg: cfg}, nil
}

// Compute fills tx.Enrichment. Non-fatal findings come back as diagnostics;
// an error means the input is structurally unusable (unknown sector column).
func (c *Calculator) Compute(tx *contracts.Transaction) ([]contracts.Diagnostic, error) {
	var diags []contracts.Diagnostic
	market := c.cfg.Benchmark.MarketColumn
	date := benchmark.Naive(tx.TransDate)

	enr := &contracts.Enrichment{}

	var err error
	if enr.MarketLevel, err = c.series.NearestValue(date, market); err != nil {
		return nil, err
	}

	hasSector := strings.TrimSpace(tx.Sector) != ""
	if hasSector {
		if enr.SectorLevel, err = c.series.NearestValue(date, tx.Sector); err != nil {
			return nil, rowError(tx, err)
		}
	} else {
		enr.SectorLevel = math.NaN()
		diags = append(diags, diagnostic(tx, contracts.DiagMissingSector, "", "transaction has no sector; sector returns are MISSING_DATA"))
	}

	var unavailable []string
	for _, h := range contracts.AllHorizons() {
		target := date.AddDate(0, 0, c.cfg.OffsetDays(h))
		res := &enr.Horizons[h]

		if res.MarketLevel, err = c.series.NearestValue(target, market); err != nil {
			return nil, err
		}
		res.Market = c.benchmarkReturn(date, target, enr.MarketLevel, res.MarketLevel)

		if hasSector {
			if res.SectorLevel, err = c.series.NearestValue(target, tx.Sector); err != nil {
				return nil, rowError(tx, err)
			}
			res.Sector = c.benchmarkReturn(date, target, enr.SectorLevel, res.SectorLevel)
		} else {
			res.SectorLevel = math.NaN()
			res.Sector = contracts.Unavailable(contracts.StatusMissingData)
		}

		res.Own = OwnReturn(tx.AdjustedPrice, tx.ForwardPrices[h])

		if st := res.Market.Status(); st == contracts.StatusFutureDataUnavailable || st == contracts.StatusHistoricalDataUnavailable {
			unavailable = append(unavailable, h.Label()+"="+string(st))
		}
	}

	if len(unavailable) > 0 {
		diags = append(diags, diagnostic(tx, contracts.DiagHorizonDataUnavailable, "",
			"benchmark window not covered: "+strings.Join(unavailable, ", ")))
	}

	enr.MarketCondition = c.marketCondition(enr.Horizons[contracts.Horizon6M].Market)
	tx.Enrichment = enr

	return diags, nil
}

// benchmarkReturn applies the availability policy in priority order:
// future window, then history before the series, then the ratio.
func (c *Calculator) benchmarkReturn(date, target time.Time, atTransaction, atHorizon float64) contracts.Return {
	switch {
	case target.After(c.series.MaxDate()):
		return contracts.Unavailable(contracts.StatusFutureDataUnavailable)
	case date.Before(c.series.MinDate()):
		return contracts.Unavailable(contracts.StatusHistoricalDataUnavailable)
	default:
		return contracts.Numeric(atHorizon/atTransaction - 1)
	}
}

func (c *Calculator) marketCondition(r contracts.Return) contracts.MarketCondition {
	v, ok := r.Value()
	switch {
	case !ok:
		return contracts.MarketUnknown
	case v <= c.cfg.MarketCondition.BearThreshold:
		return contracts.MarketBear
	case v >= c.cfg.MarketCondition.BullThreshold:
		return contracts.MarketBull
	default:
		return contracts.MarketNeutral
	}
}

// OwnReturn is the transaction's own price change to the resolved forward price
func OwnReturn(adjustedPrice, forwardPrice float64) contracts.Return {
	if math.IsNaN(adjustedPrice) || math.IsNaN(forwardPrice) || adjustedPrice <= 0 {
		return contracts.Unavailable(contracts.StatusMissingData)
	}
	return contracts.Numeric((forwardPrice - adjustedPrice) / adjustedPrice)
}

func diagnostic(tx *contracts.Transaction, code contracts.DiagnosticCode, column, detail string) contracts.Diagnostic {
	return contracts.Diagnostic{
		Code:      code,
		Severity:  code.Severity(),
		OwnerCIK:  tx.Investor.OwnerCIK,
		OwnerName: tx.Investor.OwnerName,
		Row:       tx.Row,
		Ticker:    tx.Ticker,
		Column:    column,
		Detail:    detail,
	}
}

func rowError(tx *contracts.Transaction, err error) error {
	if errors.Is(err, benchmark.ErrUnknownColumn) {
		return fmt.Errorf("row %d (%s): sector %q has no benchmark column: %w", tx.Row, tx.Ticker, tx.Sector, err)
	}
	return fmt.Errorf("row %d (%s): %w", tx.Row, tx.Ticker, err)
}
