package aggregate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/insiderperf/internal/contracts"
	"github.com/wonny/insiderperf/internal/marketcap"
	"github.com/wonny/insiderperf/internal/quality"
)

const day = 24 * time.Hour

// Aggregator builds investor profiles from enriched transactions.
// It holds no per-run state; investors may be aggregated concurrently.
type Aggregator struct {
	validator *quality.Validator
	log       zerolog.Logger
}

// NewAggregator creates an aggregator that reports through validator
func NewAggregator(validator *quality.Validator, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		validator: validator,
		log:       log.With().Str("component", "aggregate").Logger(),
	}
}

// Aggregate computes the profile of one investor.
// The profile always exists; with no positive-value rows its numeric fields stay nil.
func (a *Aggregator) Aggregate(g Group) (contracts.InvestorProfile, []contracts.Diagnostic) {
	profile := contracts.InvestorProfile{
		OwnerCIK:  g.Key.OwnerCIK,
		OwnerName: g.Key.OwnerName,
	}
	var diags []contracts.Diagnostic

	// 1. Filter to positive adjusted value
	filtered := make([]*contracts.Transaction, 0, len(g.Transactions))
	for _, tx := range g.Transactions {
		if tx.HasPositiveValue() {
			filtered = append(filtered, tx)
			continue
		}
		diags = append(diags, contracts.Diagnostic{
			Code:      contracts.DiagNonPositiveValue,
			Severity:  contracts.DiagNonPositiveValue.Severity(),
			OwnerCIK:  g.Key.OwnerCIK,
			OwnerName: g.Key.OwnerName,
			Row:       tx.Row,
			Ticker:    tx.Ticker,
			Detail:    fmt.Sprintf("adjusted total value %g excluded from weighting", tx.AdjustedTotalValue()),
		})
	}
	profile.ExcludedTransactionCount = len(g.Transactions) - len(filtered)

	rows := canonicalOrder(filtered)

	// 2. Total value
	total := 0.0
	for _, tx := range rows {
		total += tx.AdjustedTotalValue()
	}
	if len(rows) == 0 || !(total > 0) || math.IsInf(total, 0) {
		diags = append(diags, quality.NoValidTransactions(g.Key, profile.ExcludedTransactionCount))
		a.log.Warn().
			Str("owner_cik", g.Key.OwnerCIK).
			Str("owner_name", g.Key.OwnerName).
			Int("excluded", profile.ExcludedTransactionCount).
			Msg("no valid transactions")
		return profile, diags
	}

	// 3-4. Weighted returns and relative performance
	for _, h := range contracts.AllHorizons() {
		own := WeightedReturn(rows, contracts.ReturnColumn{Kind: contracts.KindOwn, Horizon: h})
		mkt := WeightedReturn(rows, contracts.ReturnColumn{Kind: contracts.KindMarket, Horizon: h})
		sec := WeightedReturn(rows, contracts.ReturnColumn{Kind: contracts.KindSector, Horizon: h})

		profile.SetHorizon(h, contracts.HorizonPerformance{
			Own:      contracts.Float(own.Value),
			Market:   contracts.Float(mkt.Value),
			Sector:   contracts.Float(sec.Value),
			VsMarket: contracts.Float(own.Value - mkt.Value),
			VsSector: contracts.Float(own.Value - sec.Value),
		})
		profile.Qualifying.Own[h] = own.Rows
		profile.Qualifying.Market[h] = mkt.Rows
		profile.Qualifying.Sector[h] = sec.Rows
	}

	// 5. Win-rates
	profile.PctPositiveVsSP5006M = contracts.Float(winRate(rows, contracts.Horizon6M, contracts.HorizonResult.VsMarket))
	profile.PctPositiveVsSP5001Y = contracts.Float(winRate(rows, contracts.Horizon1Y, contracts.HorizonResult.VsMarket))
	profile.PctPositiveVsSector6M = contracts.Float(winRate(rows, contracts.Horizon6M, contracts.HorizonResult.VsSector))

	// 6. Transaction patterns
	applyPatterns(&profile, rows, total)

	// 7. Categorical descriptors
	profile.MostCommonCompany = modal(rows, func(tx *contracts.Transaction) string { return tx.Ticker })
	profile.MostActiveSector = modal(rows, func(tx *contracts.Transaction) string { return tx.Sector })
	if profile.MostCommonCompany != "" {
		for _, tx := range rows {
			if tx.Ticker == profile.MostCommonCompany {
				profile.MostCommonCompanyCapCategory = marketcap.Categorize(tx.MarketCap)
				break
			}
		}
	}

	diags = append(diags, a.validator.Check(g.Key, rows)...)

	a.log.Debug().
		Str("owner_cik", g.Key.OwnerCIK).
		Int("transactions", profile.TransactionCount).
		Float64("total_value", total).
		Msg("investor aggregated")

	return profile, diags
}

// Weighted is a value-weighted return with the number of rows behind it
type Weighted struct {
	Value float64
	Rows  int
}

// WeightedReturn averages col over rows with a defined return, weighted by adjusted value.
// The denominator covers only qualifying rows. With none, the value is 0 and Rows is 0.
func WeightedReturn(rows []*contracts.Transaction, col contracts.ReturnColumn) Weighted {
	weights := Weights(rows, col)

	w := Weighted{}
	for i, tx := range rows {
		if weights[i] == 0 {
			continue
		}
		r, _ := col.Of(tx).Value()
		w.Value += r * weights[i]
		w.Rows++
	}
	return w
}

// Weights returns each row's weight for col: its share of the qualifying value, 0 if it does not qualify
func Weights(rows []*contracts.Transaction, col contracts.ReturnColumn) []float64 {
	weights := make([]float64, len(rows))

	den := 0.0
	for _, tx := range rows {
		if qualifies(tx, col) {
			den += tx.AdjustedTotalValue()
		}
	}
	if den <= 0 {
		return weights
	}

	for i, tx := range rows {
		if qualifies(tx, col) {
			weights[i] = tx.AdjustedTotalValue() / den
		}
	}
	return weights
}

func qualifies(tx *contracts.Transaction, col contracts.ReturnColumn) bool {
	return tx.HasPositiveValue() && col.Of(tx).Defined()
}

// winRate is the unweighted fraction of rows whose relative return is above zero.
// Rows without a relative return count as misses.
func winRate(rows []*contracts.Transaction, h contracts.Horizon, rel func(contracts.HorizonResult) (float64, bool)) float64 {
	wins := 0
	for _, tx := range rows {
		if v, ok := rel(tx.Returns(h)); ok && v > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(rows))
}

// applyPatterns fills count, value statistics, day gaps and year statistics.
// rows are date-sorted.
func applyPatterns(p *contracts.InvestorProfile, rows []*contracts.Transaction, total float64) {
	n := len(rows)
	p.TransactionCount = n

	lowest := math.Inf(1)
	for _, tx := range rows {
		lowest = math.Min(lowest, tx.AdjustedTotalValue())
	}
	p.MinTransactionValue = contracts.Float(lowest)
	p.AvgTransactionValue = contracts.Float(total / float64(n))
	p.TotalTransactionValue = contracts.Float(total)

	gap := 0
	if n > 1 {
		span := rows[n-1].TransDate.Sub(rows[0].TransDate)
		gap = int(span / time.Duration(n-1) / day)
	}
	p.AvgDaysBetweenTransactions = contracts.Int(gap)

	tickers := make(map[string]struct{})
	years := make(map[int]struct{})
	earliest, latest := rows[0].TransDate.Year(), rows[0].TransDate.Year()
	for _, tx := range rows {
		if tx.Ticker != "" {
			tickers[tx.Ticker] = struct{}{}
		}
		y := tx.TransDate.Year()
		years[y] = struct{}{}
		if y < earliest {
			earliest = y
		}
		if y > latest {
			latest = y
		}
	}
	p.NumberOfCompanies = contracts.Int(len(tickers))
	p.UniqueTransactionYears = contracts.Int(len(years))
	p.EarliestTransactionYear = contracts.Int(earliest)
	p.MostRecentTransactionYear = contracts.Int(latest)
}

// modal returns the most frequent non-empty value; ties go to the smallest value
func modal(rows []*contracts.Transaction, field func(*contracts.Transaction) string) string {
	counts := make(map[string]int)
	for _, tx := range rows {
		if v := field(tx); v != "" {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return ""
	}

	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Strings(values)

	best := values[0]
	for _, v := range values[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}
