package store

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/insiderperf/internal/benchmark"
	"github.com/wonny/insiderperf/internal/contracts"
	"github.com/wonny/insiderperf/internal/pipeline"
	"github.com/wonny/insiderperf/pkg/config"
	"github.com/wonny/insiderperf/pkg/database"
	"github.com/wonny/insiderperf/pkg/logger"
)

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(math.NaN()))
	assert.Nil(t, nullable(math.Inf(1)))
	require.NotNil(t, nullable(0))
	assert.Equal(t, 0.0, *nullable(0))

	assert.True(t, math.IsNaN(orNaN(nil)))
	assert.Equal(t, 2.5, orNaN(nullable(2.5)))
}

func TestQualifyingCounts(t *testing.T) {
	in := [contracts.NumHorizons]int{3, 0, 7}
	assert.Equal(t, []int32{3, 0, 7}, int32s(in))
	assert.Equal(t, in, counts(int32s(in)))
	assert.Equal(t, [contracts.NumHorizons]int{1, 0, 0}, counts([]int32{1}))
}

func TestProfileArgs_MatchColumns(t *testing.T) {
	p := contracts.InvestorProfile{OwnerCIK: "1", OwnerName: "a"}
	cols := 0
	for _, c := range profileColumns {
		if c == ',' {
			cols++
		}
	}
	assert.Len(t, profileArgs(&p), cols+1)
}

func TestImportRows(t *testing.T) {
	when := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	tx := &contracts.Transaction{
		Row:            7,
		Investor:       contracts.InvestorKey{OwnerCIK: "1", OwnerName: "a"},
		TransDate:      when,
		Shares:         math.NaN(),
		AdjustedShares: 5,
		ForwardPrices:  [3]float64{1, math.Inf(1), 3},
	}
	rows := transactionRows([]*contracts.Transaction{tx})
	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(transactionColumns))
	assert.Nil(t, rows[0][8])
	assert.Nil(t, rows[0][15])

	diags := diagnosticRows([]contracts.Diagnostic{
		{Code: contracts.DiagUnparseableNumericField, Severity: contracts.SeverityWarn, Row: 7, Column: "6 Month Price"},
		{Code: contracts.DiagUnparseableNumericField, Severity: contracts.SeverityWarn, Row: 9},
	})
	require.Len(t, diags, 2)
	require.Len(t, diags[1], len(loadDiagnosticColumns))
	assert.Equal(t, 1, diags[1][0])
	assert.Equal(t, string(contracts.DiagUnparseableNumericField), diags[0][1])
	assert.Equal(t, "6 Month Price", diags[0][7])
}

func TestRecordRow(t *testing.T) {
	rec := contracts.NewTransactionRecord(&contracts.Transaction{Row: 3, Investor: contracts.InvestorKey{OwnerCIK: "1"}})
	row, err := recordRow("run-1", rec)
	require.NoError(t, err)
	require.Len(t, row, len(runTransactionColumns))
	assert.Equal(t, "run-1", row[0])
	assert.Equal(t, string(contracts.MarketUnknown), row[12])
	assert.Contains(t, row[13], `"horizon":"18M"`)
}

func openStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	s := New(db.Pool)
	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	day := func(m time.Month, d int) time.Time { return time.Date(2020, m, d, 0, 0, 0, 0, time.UTC) }
	series, err := benchmark.NewSeries(
		[]time.Time{day(1, 1), day(6, 29), day(12, 31)},
		map[string][]float64{"S&P 500": {100, 104, 110}, "Energy": {50, math.NaN(), 60}},
	)
	require.NoError(t, err)

	txs := []*contracts.Transaction{{
		Row:             1,
		Investor:        contracts.InvestorKey{OwnerCIK: "0001", OwnerName: "Doe Jane"},
		Ticker:          "XOM",
		Sector:          "Energy",
		TransDate:       day(1, 1),
		Shares:          100,
		PricePerShare:   10,
		SplitAdjustment: math.NaN(),
		AdjustedShares:  100,
		AdjustedPrice:   10,
		MarketCap:       250e9,
		ForwardPrices:   [3]float64{11, 12, math.NaN()},
	}}

	loadDiag := contracts.Diagnostic{
		Code:     contracts.DiagUnparseableNumericField,
		Severity: contracts.SeverityWarn,
		Row:      1,
		Ticker:   "XOM",
		Column:   "6 Month Price",
		Detail:   `"abc"`,
	}
	counts, err := s.ImportInput(ctx, pipeline.Input{
		Transactions:    txs,
		Benchmark:       series,
		LoadDiagnostics: []contracts.Diagnostic{loadDiag},
	})
	require.NoError(t, err)
	assert.Equal(t, ImportCounts{Transactions: 1, BenchmarkLevels: 6, Diagnostics: 1}, counts)

	in, err := s.LoadInput(ctx)
	require.NoError(t, err)
	require.Len(t, in.Transactions, 1)
	assert.Equal(t, "XOM", in.Transactions[0].Ticker)
	assert.True(t, math.IsNaN(in.Transactions[0].SplitAdjustment))
	assert.True(t, math.IsNaN(in.Transactions[0].ForwardPrices[contracts.Horizon18M]))
	assert.Equal(t, 3, in.Benchmark.Len())
	assert.True(t, math.IsNaN(in.Benchmark.Value(1, "Energy")))
	assert.Equal(t, []contracts.Diagnostic{loadDiag}, in.LoadDiagnostics)

	result, err := pipeline.New(logger.Nop(), nil).Run(ctx, in, pipeline.RunConfig{Workers: 2})
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(ctx, result, "sp500_form4"))

	run, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, run.RunID)
	assert.Equal(t, 1, run.Investors)

	profiles, err := s.ListProfiles(ctx, run.RunID)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, result.Profiles[0], profiles[0])

	_, err = s.GetProfiles(ctx, run.RunID, "9999")
	assert.ErrorIs(t, err, ErrNotFound)

	diags, err := s.ListDiagnostics(ctx, run.RunID, "")
	require.NoError(t, err)
	assert.Len(t, diags, len(result.Diagnostics))
	assert.Contains(t, diags, loadDiag)

	records, err := s.ListTransactions(ctx, run.RunID, "0001")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, contracts.NewTransactionRecord(result.Transactions[0]), records[0])

	_, err = s.ListTransactions(ctx, run.RunID, "9999")
	assert.ErrorIs(t, err, ErrNotFound)

	pruned, err := s.PruneRuns(ctx, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pruned, int64(0))

	run, err = s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, run.RunID)
}
