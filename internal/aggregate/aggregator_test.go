package aggregate

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/insiderperf/internal/attribcfg"
	"github.com/wonny/insiderperf/internal/contracts"
	"github.com/wonny/insiderperf/internal/quality"
)

var jane = contracts.InvestorKey{OwnerCIK: "0001", OwnerName: "Doe Jane"}

func newAggregator() *Aggregator {
	return NewAggregator(quality.NewValidator(attribcfg.Default().Validation), zerolog.Nop())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newTx builds an enriched transaction worth value with the same own/market/sector
// returns on every horizon unless overridden
func newTx(row int, ticker string, when time.Time, value float64, own, market, sector contracts.Return) *contracts.Transaction {
	tx := &contracts.Transaction{
		Row:            row,
		Investor:       jane,
		Ticker:         ticker,
		Sector:         "Energy",
		TransDate:      when,
		AdjustedShares: value,
		AdjustedPrice:  1,
		MarketCap:      50e9,
		Enrichment:     &contracts.Enrichment{},
	}
	for _, h := range contracts.AllHorizons() {
		tx.Enrichment.Horizons[h] = contracts.HorizonResult{Own: own, Market: market, Sector: sector}
	}
	return tx
}

func num(v float64) contracts.Return { return contracts.Numeric(v) }

var future = contracts.Unavailable(contracts.StatusFutureDataUnavailable)

func TestAggregate_SingleTransaction(t *testing.T) {
	tx := newTx(1, "XOM", date(2020, 3, 2), 1_000_000, num(0.10), num(0.04), num(0.02))

	p, diags := newAggregator().Aggregate(Group{Key: jane, Transactions: []*contracts.Transaction{tx}})

	require.NotNil(t, p.WeightedReturn6M)
	assert.InDelta(t, 0.10, *p.WeightedReturn6M, 1e-12)
	assert.InDelta(t, 0.04, *p.WeightedSP5006M, 1e-12)
	assert.InDelta(t, 0.06, *p.ReturnVsSP5006M, 1e-12)
	assert.InDelta(t, 0.08, *p.ReturnVsSector6M, 1e-12)
	assert.Equal(t, 1.0, *p.PctPositiveVsSP5006M)
	assert.Equal(t, 1.0, *p.PctPositiveVsSector6M)

	assert.Equal(t, 1, p.TransactionCount)
	assert.Equal(t, 1_000_000.0, *p.TotalTransactionValue)
	assert.Equal(t, 1_000_000.0, *p.MinTransactionValue)
	assert.Equal(t, 0, *p.AvgDaysBetweenTransactions)
	assert.Equal(t, 2020, *p.EarliestTransactionYear)
	assert.Equal(t, "XOM", p.MostCommonCompany)
	assert.Equal(t, "Energy", p.MostActiveSector)
	assert.Equal(t, contracts.CapLarge, p.MostCommonCompanyCapCategory)
	assert.Equal(t, 1, p.Qualifying.Own[contracts.Horizon6M])
	assert.Empty(t, diags)
}

func TestAggregate_NoValidTransactions(t *testing.T) {
	zero := newTx(3, "XOM", date(2020, 3, 2), 0, num(0.1), num(0.1), num(0.1))

	p, diags := newAggregator().Aggregate(Group{Key: jane, Transactions: []*contracts.Transaction{zero}})

	assert.Equal(t, "0001", p.OwnerCIK)
	assert.Equal(t, 0, p.TransactionCount)
	assert.Equal(t, 1, p.ExcludedTransactionCount)
	for _, h := range contracts.AllHorizons() {
		hp := p.Horizon(h)
		assert.Nil(t, hp.Own)
		assert.Nil(t, hp.Market)
		assert.Nil(t, hp.VsSector)
	}
	assert.Nil(t, p.PctPositiveVsSP5006M)
	assert.Nil(t, p.TotalTransactionValue)
	assert.Nil(t, p.AvgDaysBetweenTransactions)
	assert.Empty(t, p.MostCommonCompany)

	codes := map[contracts.DiagnosticCode]int{}
	for _, d := range diags {
		codes[d.Code]++
	}
	assert.Equal(t, 1, codes[contracts.DiagNoValidTransactions])
	assert.Equal(t, 1, codes[contracts.DiagNonPositiveValue])
}

func TestAggregate_InfiniteValueExcludedAlone(t *testing.T) {
	valid := newTx(1, "XOM", date(2020, 1, 1), 1_000_000, num(0.10), num(0.04), num(0.02))
	inf := newTx(2, "XOM", date(2020, 2, 1), math.Inf(1), num(0.50), num(0.04), num(0.02))

	p, diags := newAggregator().Aggregate(Group{Key: jane, Transactions: []*contracts.Transaction{valid, inf}})

	assert.Equal(t, 1, p.TransactionCount)
	assert.Equal(t, 1, p.ExcludedTransactionCount)
	require.NotNil(t, p.WeightedReturn6M)
	assert.InDelta(t, 0.10, *p.WeightedReturn6M, 1e-12)
	assert.Equal(t, 1_000_000.0, *p.TotalTransactionValue)

	for _, d := range diags {
		assert.NotEqual(t, contracts.DiagNoValidTransactions, d.Code)
	}
}

func TestAggregate_DescriptiveStatsSkipExcludedRows(t *testing.T) {
	kept := []*contracts.Transaction{
		newTx(1, "XOM", date(2020, 1, 1), 1_000, num(0.10), num(0.04), num(0.02)),
		newTx(2, "XOM", date(2021, 1, 1), 1_000, num(0.10), num(0.04), num(0.02)),
	}
	zero := newTx(3, "CVX", date(2015, 6, 1), 0, num(0.10), num(0.04), num(0.02))
	zero.Sector = "Utilities"

	p, _ := newAggregator().Aggregate(Group{Key: jane, Transactions: append(kept, zero)})

	assert.Equal(t, 1, p.ExcludedTransactionCount)
	assert.Equal(t, 1, *p.NumberOfCompanies)
	assert.Equal(t, 2, *p.UniqueTransactionYears)
	assert.Equal(t, 2020, *p.EarliestTransactionYear)
	assert.Equal(t, 2021, *p.MostRecentTransactionYear)
	assert.Equal(t, "Energy", p.MostActiveSector)
}

func TestAggregate_UnavailableHorizonExcludedFromThatHorizonOnly(t *testing.T) {
	a := newTx(1, "XOM", date(2020, 1, 1), 1_000_000, num(0.10), num(0.05), num(0.05))
	b := newTx(2, "XOM", date(2021, 1, 1), 3_000_000, num(0.30), num(0.10), num(0.10))
	// b's 18M window runs past the benchmark series
	b.Enrichment.Horizons[contracts.Horizon18M] = contracts.HorizonResult{Own: num(0.5), Market: future, Sector: future}

	p, _ := newAggregator().Aggregate(Group{Key: jane, Transactions: []*contracts.Transaction{a, b}})

	// 6M: both rows qualify
	assert.InDelta(t, 0.25*0.10+0.75*0.30, *p.WeightedReturn6M, 1e-12)
	assert.InDelta(t, 0.25*0.05+0.75*0.10, *p.WeightedSP5006M, 1e-12)
	assert.Equal(t, 2, p.Qualifying.Market[contracts.Horizon6M])

	// 18M market: only a qualifies; its weight is 1, not 0.25
	assert.InDelta(t, 0.05, *p.WeightedSP50018M, 1e-12)
	assert.Equal(t, 1, p.Qualifying.Market[contracts.Horizon18M])
	assert.InDelta(t, 0.25*0.10+0.75*0.5, *p.WeightedReturn18M, 1e-12)
	assert.Equal(t, 2, p.Qualifying.Own[contracts.Horizon18M])
}

func TestAggregate_NoQualifyingRowsIsZero(t *testing.T) {
	a := newTx(1, "XOM", date(2020, 1, 1), 500, num(0.10), future, future)

	p, _ := newAggregator().Aggregate(Group{Key: jane, Transactions: []*contracts.Transaction{a}})

	require.NotNil(t, p.WeightedSP5006M)
	assert.Equal(t, 0.0, *p.WeightedSP5006M)
	assert.Equal(t, 0, p.Qualifying.Market[contracts.Horizon6M])
	assert.InDelta(t, 0.10, *p.ReturnVsSP5006M, 1e-12)
	// no relative return on the row, so no win
	assert.Equal(t, 0.0, *p.PctPositiveVsSP5006M)
}

func TestAggregate_WinRateUnweighted(t *testing.T) {
	txs := []*contracts.Transaction{
		newTx(1, "A", date(2020, 1, 1), 10, num(0.2), num(0.1), num(0.3)),
		newTx(2, "B", date(2020, 2, 1), 1_000_000, num(0.0), num(0.1), num(-0.1)),
		newTx(3, "C", date(2020, 3, 1), 10, num(0.1), future, num(0.05)),
		newTx(4, "D", date(2020, 4, 1), 10, num(0.1), num(0.1), num(0.05)),
	}

	p, _ := newAggregator().Aggregate(Group{Key: jane, Transactions: txs})

	assert.InDelta(t, 0.25, *p.PctPositiveVsSP5006M, 1e-12)
	assert.InDelta(t, 0.75, *p.PctPositiveVsSector6M, 1e-12)
}

func TestAggregate_Patterns(t *testing.T) {
	txs := []*contracts.Transaction{
		newTx(1, "XOM", date(2019, 12, 31), 100, num(0.1), num(0.1), num(0.1)),
		newTx(2, "CVX", date(2020, 1, 11), 300, num(0.1), num(0.1), num(0.1)),
		newTx(3, "XOM", date(2020, 1, 12), 200, num(0.1), num(0.1), num(0.1)),
		newTx(4, "COP", date(2020, 5, 1), -50, num(0.1), num(0.1), num(0.1)),
	}
	txs[1].Sector = "Industrials"

	p, diags := newAggregator().Aggregate(Group{Key: jane, Transactions: txs})

	assert.Equal(t, 3, p.TransactionCount)
	assert.Equal(t, 1, p.ExcludedTransactionCount)
	assert.Equal(t, 100.0, *p.MinTransactionValue)
	assert.Equal(t, 200.0, *p.AvgTransactionValue)
	assert.Equal(t, 600.0, *p.TotalTransactionValue)
	// 12 days over 2 gaps, floored
	assert.Equal(t, 6, *p.AvgDaysBetweenTransactions)
	assert.Equal(t, 2, *p.NumberOfCompanies)
	assert.Equal(t, 2, *p.UniqueTransactionYears)
	assert.Equal(t, 2019, *p.EarliestTransactionYear)
	assert.Equal(t, 2020, *p.MostRecentTransactionYear)
	assert.Equal(t, "XOM", p.MostCommonCompany)
	assert.Equal(t, "Energy", p.MostActiveSector)

	excluded := 0
	for _, d := range diags {
		if d.Code == contracts.DiagNonPositiveValue {
			excluded++
			assert.Equal(t, 4, d.Row)
		}
	}
	assert.Equal(t, 1, excluded)
}

func TestAggregate_ModalTieAndCapBucket(t *testing.T) {
	b1 := newTx(1, "BBB", date(2020, 6, 1), 100, num(0.1), num(0.1), num(0.1))
	a1 := newTx(2, "AAA", date(2020, 3, 1), 100, num(0.1), num(0.1), num(0.1))
	a2 := newTx(3, "AAA", date(2020, 1, 1), 100, num(0.1), num(0.1), num(0.1))
	b2 := newTx(4, "BBB", date(2020, 2, 1), 100, num(0.1), num(0.1), num(0.1))
	a1.MarketCap = 500e9
	a2.MarketCap = 1e9
	a2.Sector = "Utilities"
	b1.Sector = "Utilities"

	p, _ := newAggregator().Aggregate(Group{Key: jane, Transactions: []*contracts.Transaction{b1, a1, a2, b2}})

	assert.Equal(t, "AAA", p.MostCommonCompany)
	assert.Equal(t, "Energy", p.MostActiveSector)
	// earliest-dated AAA row
	assert.Equal(t, contracts.CapSmall, p.MostCommonCompanyCapCategory)
}

func TestAggregate_UnclassifiedCap(t *testing.T) {
	tx := newTx(1, "XOM", date(2020, 1, 1), 100, num(0.1), num(0.1), num(0.1))
	tx.MarketCap = math.NaN()

	p, _ := newAggregator().Aggregate(Group{Key: jane, Transactions: []*contracts.Transaction{tx}})
	assert.Equal(t, contracts.CapUnclassified, p.MostCommonCompanyCapCategory)
}

func TestGroupByInvestor(t *testing.T) {
	bob := contracts.InvestorKey{OwnerCIK: "0002", OwnerName: "Roe Bob"}
	janeAlias := contracts.InvestorKey{OwnerCIK: "0001", OwnerName: "Doe J."}

	mk := func(row int, key contracts.InvestorKey) *contracts.Transaction {
		return &contracts.Transaction{Row: row, Investor: key}
	}
	groups := GroupByInvestor([]*contracts.Transaction{
		mk(1, bob), mk(2, jane), mk(3, bob), mk(4, janeAlias),
	})

	require.Len(t, groups, 3)
	assert.Equal(t, janeAlias, groups[0].Key)
	assert.Equal(t, jane, groups[1].Key)
	assert.Equal(t, bob, groups[2].Key)
	require.Len(t, groups[2].Transactions, 2)
	assert.Equal(t, 1, groups[2].Transactions[0].Row)
	assert.Equal(t, 3, groups[2].Transactions[1].Row)
}

// genTransactions builds 12 rows with mixed values, statuses and dates
func genTransactions() gopter.Gen {
	return gen.SliceOfN(12, gen.IntRange(0, 1<<20)).Map(func(seeds []int) []*contracts.Transaction {
		tickers := []string{"AAA", "BBB", "CCC"}
		statuses := []contracts.Return{future, contracts.Unavailable(contracts.StatusMissingData)}
		var txs []*contracts.Transaction
		for i, s := range seeds {
			r := rand.New(rand.NewSource(int64(s)))
			ret := func() contracts.Return {
				if r.Intn(4) == 0 {
					return statuses[r.Intn(len(statuses))]
				}
				return num(r.Float64()*2 - 0.5)
			}
			value := float64(r.Intn(5_000_000)) - 100_000
			tx := newTx(i+1, tickers[r.Intn(len(tickers))], date(2015, 1, 1).AddDate(0, 0, r.Intn(3000)), value, ret(), ret(), ret())
			tx.Enrichment.Horizons[contracts.Horizon1Y] = contracts.HorizonResult{Own: ret(), Market: ret(), Sector: ret()}
			txs = append(txs, tx)
		}
		return txs
	})
}

func TestAggregate_OrderIndependent(t *testing.T) {
	properties := gopter.NewProperties(nil)
	agg := newAggregator()

	properties.Property("permuting rows yields a bit-identical profile", prop.ForAll(
		func(txs []*contracts.Transaction, seed int64) bool {
			shuffled := make([]*contracts.Transaction, len(txs))
			copy(shuffled, txs)
			rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})

			p1, _ := agg.Aggregate(Group{Key: jane, Transactions: txs})
			p2, _ := agg.Aggregate(Group{Key: jane, Transactions: shuffled})
			return assert.ObjectsAreEqual(p1, p2)
		},
		genTransactions(),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestWeights_SumToOne(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("weights over qualifying rows sum to 1", prop.ForAll(
		func(txs []*contracts.Transaction) bool {
			rows := canonicalOrder(txs)
			for _, col := range contracts.ReturnColumns() {
				weights := Weights(rows, col)
				sum, used := 0.0, 0
				for i, w := range weights {
					if w < 0 {
						return false
					}
					if w > 0 {
						used++
						if !qualifies(rows[i], col) {
							return false
						}
					}
					sum += w
				}
				if used == 0 {
					if sum != 0 {
						return false
					}
					continue
				}
				if math.Abs(sum-1) > 1e-9 {
					return false
				}
				if WeightedReturn(rows, col).Rows != used {
					return false
				}
			}
			return true
		},
		genTransactions(),
	))

	properties.TestingRun(t)
}
