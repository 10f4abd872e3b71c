package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/insiderperf/internal/benchmark"
	"github.com/wonny/insiderperf/internal/contracts"
	"github.com/wonny/insiderperf/internal/pipeline"
)

var transactionColumns = []string{
	"row_num", "owner_cik", "owner_name", "ticker", "issuer_name", "gics_sector", "gics_sub_industry",
	"trans_date", "trans_shares", "trans_price", "split_adjustment", "adjusted_shares", "adjusted_price",
	"market_cap", "price_6m", "price_1y", "price_18m",
}

// ImportCounts reports how many rows an import wrote per table
type ImportCounts struct {
	Transactions    int64
	BenchmarkLevels int64
	Diagnostics     int64
}

var loadDiagnosticColumns = []string{
	"seq", "code", "severity", "owner_cik", "owner_name", "row_num", "ticker", "column_name", "count", "detail",
}

// ImportInput replaces the stored transactions, benchmark levels and load
// diagnostics in one transaction
func (s *Store) ImportInput(ctx context.Context, in pipeline.Input) (ImportCounts, error) {
	var counts ImportCounts
	if in.Benchmark == nil {
		return counts, fmt.Errorf("import: benchmark series is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return counts, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if counts.Transactions, err = replace(ctx, tx, "transactions", transactionColumns, transactionRows(in.Transactions)); err != nil {
		return counts, err
	}
	if counts.BenchmarkLevels, err = replace(ctx, tx, "benchmark_levels", []string{"level_date", "index_name", "level"}, benchmarkRows(in.Benchmark)); err != nil {
		return counts, err
	}
	if counts.Diagnostics, err = replace(ctx, tx, "load_diagnostics", loadDiagnosticColumns, diagnosticRows(in.LoadDiagnostics)); err != nil {
		return counts, err
	}

	if err := tx.Commit(ctx); err != nil {
		return counts, fmt.Errorf("commit import: %w", err)
	}
	return counts, nil
}

func transactionRows(txs []*contracts.Transaction) [][]any {
	rows := make([][]any, len(txs))
	for i, tx := range txs {
		rows[i] = []any{
			tx.Row, tx.Investor.OwnerCIK, tx.Investor.OwnerName, tx.Ticker, tx.IssuerName, tx.Sector, tx.SubIndustry,
			tx.TransDate, nullable(tx.Shares), nullable(tx.PricePerShare), nullable(tx.SplitAdjustment),
			nullable(tx.AdjustedShares), nullable(tx.AdjustedPrice), nullable(tx.MarketCap),
			nullable(tx.ForwardPrices[contracts.Horizon6M]),
			nullable(tx.ForwardPrices[contracts.Horizon1Y]),
			nullable(tx.ForwardPrices[contracts.Horizon18M]),
		}
	}
	return rows
}

// benchmarkRows flattens the series to one row per date and index
func benchmarkRows(series *benchmark.Series) [][]any {
	names := series.Columns()
	rows := make([][]any, 0, series.Len()*len(names))
	for i := 0; i < series.Len(); i++ {
		for _, name := range names {
			rows = append(rows, []any{series.Date(i), name, nullable(series.Value(i, name))})
		}
	}
	return rows
}

// diagnosticRows numbers the diagnostics in emission order
func diagnosticRows(diags []contracts.Diagnostic) [][]any {
	rows := make([][]any, len(diags))
	for i, d := range diags {
		rows[i] = []any{i, string(d.Code), string(d.Severity), d.OwnerCIK, d.OwnerName, d.Row, d.Ticker, d.Column, d.Count, d.Detail}
	}
	return rows
}

// replace truncates table and copies rows inside tx
func replace(ctx context.Context, tx pgx.Tx, table string, columns []string, rows [][]any) (int64, error) {
	if _, err := tx.Exec(ctx, "TRUNCATE insider."+table); err != nil {
		return 0, fmt.Errorf("truncate %s: %w", table, err)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"insider", table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy %s: %w", table, err)
	}
	return n, nil
}

// LoadInput reads the stored transactions, benchmark levels and load
// diagnostics as a pipeline snapshot
func (s *Store) LoadInput(ctx context.Context) (pipeline.Input, error) {
	txs, err := s.loadTransactions(ctx)
	if err != nil {
		return pipeline.Input{}, err
	}
	series, err := s.loadBenchmark(ctx)
	if err != nil {
		return pipeline.Input{}, err
	}
	diags, err := s.loadDiagnostics(ctx)
	if err != nil {
		return pipeline.Input{}, err
	}
	return pipeline.Input{Transactions: txs, Benchmark: series, LoadDiagnostics: diags}, nil
}

func (s *Store) loadDiagnostics(ctx context.Context) ([]contracts.Diagnostic, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, severity, owner_cik, owner_name, row_num, ticker, column_name, count, detail
		FROM insider.load_diagnostics
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query load diagnostics: %w", err)
	}
	defer rows.Close()
	return scanDiagnostics(rows)
}

func (s *Store) loadTransactions(ctx context.Context) ([]*contracts.Transaction, error) {
	query := `
		SELECT row_num, owner_cik, owner_name, ticker, issuer_name, gics_sector, gics_sub_industry,
			   trans_date, trans_shares, trans_price, split_adjustment, adjusted_shares, adjusted_price,
			   market_cap, price_6m, price_1y, price_18m
		FROM insider.transactions
		ORDER BY row_num`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []*contracts.Transaction
	for rows.Next() {
		var (
			tx                                              contracts.Transaction
			shares, price, split, adjShares, adjPrice, mcap *float64
			price6M, price1Y, price18M                      *float64
		)
		if err := rows.Scan(
			&tx.Row, &tx.Investor.OwnerCIK, &tx.Investor.OwnerName, &tx.Ticker, &tx.IssuerName,
			&tx.Sector, &tx.SubIndustry, &tx.TransDate,
			&shares, &price, &split, &adjShares, &adjPrice, &mcap, &price6M, &price1Y, &price18M,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Shares, tx.PricePerShare, tx.SplitAdjustment = orNaN(shares), orNaN(price), orNaN(split)
		tx.AdjustedShares, tx.AdjustedPrice, tx.MarketCap = orNaN(adjShares), orNaN(adjPrice), orNaN(mcap)
		tx.ForwardPrices = [contracts.NumHorizons]float64{orNaN(price6M), orNaN(price1Y), orNaN(price18M)}
		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	return txs, nil
}

// loadBenchmark pivots the long-format levels back into a series. Cells
// absent for a date are NaN.
func (s *Store) loadBenchmark(ctx context.Context) (*benchmark.Series, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT level_date, index_name, level
		FROM insider.benchmark_levels
		ORDER BY level_date, index_name`)
	if err != nil {
		return nil, fmt.Errorf("query benchmark: %w", err)
	}
	defer rows.Close()

	type cell struct {
		date  int
		name  string
		level float64
	}
	var (
		dates []time.Time
		cells []cell
		names = make(map[string]struct{})
	)
	for rows.Next() {
		var (
			date  time.Time
			name  string
			level *float64
		)
		if err := rows.Scan(&date, &name, &level); err != nil {
			return nil, fmt.Errorf("scan benchmark: %w", err)
		}
		if len(dates) == 0 || !dates[len(dates)-1].Equal(date) {
			dates = append(dates, date)
		}
		cells = append(cells, cell{date: len(dates) - 1, name: name, level: orNaN(level)})
		names[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read benchmark: %w", err)
	}

	columns := make(map[string][]float64, len(names))
	for name := range names {
		col := make([]float64, len(dates))
		for i := range col {
			col[i] = math.NaN()
		}
		columns[name] = col
	}
	for _, c := range cells {
		columns[c.name][c.date] = c.level
	}

	return benchmark.NewSeries(dates, columns)
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
