package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/insiderperf/internal/contracts"
	"github.com/wonny/insiderperf/internal/pipeline"
)

// Run is the stored summary of an attribution run
type Run struct {
	RunID        string             `json:"run_id"`
	ConfigID     string             `json:"config_id"`
	ConfigHash   string             `json:"config_hash"`
	StartedAt    time.Time          `json:"started_at"`
	DurationMS   int64              `json:"duration_ms"`
	Transactions int                `json:"transactions"`
	Investors    int                `json:"investors"`
	Diagnostics  int                `json:"diagnostics"`
	QualityScore float64            `json:"quality_score"`
	Coverage     map[string]float64 `json:"coverage"`
}

const profileColumns = `
	owner_cik, owner_name,
	weighted_return_6m, weighted_return_1y, weighted_return_18m,
	weighted_sp500_6m, weighted_sp500_1y, weighted_sp500_18m,
	weighted_sector_6m, weighted_sector_1y, weighted_sector_18m,
	return_vs_sp500_6m, return_vs_sp500_1y, return_vs_sp500_18m,
	return_vs_sector_6m, return_vs_sector_1y, return_vs_sector_18m,
	pct_positive_vs_sp500_6m, pct_positive_vs_sp500_1y, pct_positive_vs_sector_6m,
	transaction_count, excluded_count,
	min_transaction_value, avg_transaction_value, total_transaction_value,
	avg_days_between, number_of_companies, unique_years, earliest_year, most_recent_year,
	most_common_company, most_active_sector, cap_category,
	qualifying_own, qualifying_market, qualifying_sector`

var runTransactionColumns = []string{
	"run_id", "row_num", "owner_cik", "owner_name", "ticker", "issuer_name", "gics_sector", "trans_date",
	"total_value", "adjusted_value", "sp500_level", "sector_level", "market_condition", "horizons",
}

// SaveRun stores the run summary, its profiles, its diagnostics and its
// enriched transactions atomically
func (s *Store) SaveRun(ctx context.Context, result *pipeline.RunResult, configID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	coverage := map[string]float64{}
	quality := 0.0
	if result.Coverage != nil {
		coverage = result.Coverage.Coverage
		quality = result.Coverage.QualityScore
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO insider.attribution_runs
			(run_id, config_id, config_hash, started_at, duration_ms, transactions, investors, diagnostics, quality_score, coverage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		result.RunID, configID, result.ConfigHash, result.StartedAt, result.Duration.Milliseconds(),
		len(result.Transactions), len(result.Profiles), len(result.Diagnostics), quality, coverage,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	profileInsert := `INSERT INTO insider.investor_profiles (run_id, ` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
				$21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37)`
	for i := range result.Profiles {
		p := &result.Profiles[i]
		batch.Queue(profileInsert, append([]any{result.RunID}, profileArgs(p)...)...)
	}

	diagInsert := `INSERT INTO insider.diagnostics
		(run_id, seq, code, severity, owner_cik, owner_name, row_num, ticker, column_name, count, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for i, d := range result.Diagnostics {
		batch.Queue(diagInsert, result.RunID, i, string(d.Code), string(d.Severity),
			d.OwnerCIK, d.OwnerName, d.Row, d.Ticker, d.Column, d.Count, d.Detail)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("save run %s: statement %d: %w", result.RunID, i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	rows := make([][]any, 0, len(result.Transactions))
	for _, t := range result.Transactions {
		row, err := recordRow(result.RunID, contracts.NewTransactionRecord(t))
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"insider", "run_transactions"}, runTransactionColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy run transactions %s: %w", result.RunID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run %s: %w", result.RunID, err)
	}
	return nil
}

// LatestRun returns the most recently started run
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	var r Run
	err := s.pool.QueryRow(ctx, `
		SELECT run_id, config_id, config_hash, started_at, duration_ms, transactions, investors,
			   diagnostics, quality_score, coverage
		FROM insider.attribution_runs
		ORDER BY started_at DESC
		LIMIT 1`,
	).Scan(&r.RunID, &r.ConfigID, &r.ConfigHash, &r.StartedAt, &r.DurationMS, &r.Transactions,
		&r.Investors, &r.Diagnostics, &r.QualityScore, &r.Coverage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return &r, nil
}

// ListProfiles returns every profile of a run, ordered by investor
func (s *Store) ListProfiles(ctx context.Context, runID string) ([]contracts.InvestorProfile, error) {
	return s.queryProfiles(ctx, `
		SELECT `+profileColumns+`
		FROM insider.investor_profiles
		WHERE run_id = $1
		ORDER BY owner_cik, owner_name`, runID)
}

// GetProfiles returns the profiles of one owner code; one per display name
func (s *Store) GetProfiles(ctx context.Context, runID, ownerCIK string) ([]contracts.InvestorProfile, error) {
	profiles, err := s.queryProfiles(ctx, `
		SELECT `+profileColumns+`
		FROM insider.investor_profiles
		WHERE run_id = $1 AND owner_cik = $2
		ORDER BY owner_name`, runID, ownerCIK)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, ErrNotFound
	}
	return profiles, nil
}

// ListDiagnostics returns a run's diagnostics in emission order, optionally filtered by code
func (s *Store) ListDiagnostics(ctx context.Context, runID string, code contracts.DiagnosticCode) ([]contracts.Diagnostic, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, severity, owner_cik, owner_name, row_num, ticker, column_name, count, detail
		FROM insider.diagnostics
		WHERE run_id = $1 AND ($2 = '' OR code = $2)
		ORDER BY seq`, runID, string(code))
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()
	return scanDiagnostics(rows)
}

// scanDiagnostics reads rows selected in the diagnostics column order
func scanDiagnostics(rows pgx.Rows) ([]contracts.Diagnostic, error) {
	diags := []contracts.Diagnostic{}
	for rows.Next() {
		var (
			d              contracts.Diagnostic
			code, severity string
		)
		if err := rows.Scan(&code, &severity, &d.OwnerCIK, &d.OwnerName, &d.Row, &d.Ticker, &d.Column, &d.Count, &d.Detail); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		d.Code, d.Severity = contracts.DiagnosticCode(code), contracts.Severity(severity)
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

// ListTransactions returns the enriched transactions of one owner code,
// most recent first
func (s *Store) ListTransactions(ctx context.Context, runID, ownerCIK string) ([]contracts.TransactionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT row_num, owner_cik, owner_name, ticker, issuer_name, gics_sector, trans_date,
			   total_value, adjusted_value, sp500_level, sector_level, market_condition, horizons
		FROM insider.run_transactions
		WHERE run_id = $1 AND owner_cik = $2
		ORDER BY trans_date DESC, row_num`, runID, ownerCIK)
	if err != nil {
		return nil, fmt.Errorf("query run transactions: %w", err)
	}
	defer rows.Close()

	records := []contracts.TransactionRecord{}
	for rows.Next() {
		var (
			rec       contracts.TransactionRecord
			condition string
			horizons  []byte
		)
		if err := rows.Scan(&rec.Row, &rec.OwnerCIK, &rec.OwnerName, &rec.Ticker, &rec.IssuerName, &rec.Sector,
			&rec.TransDate, &rec.TotalValue, &rec.AdjustedTotalValue, &rec.MarketLevel, &rec.SectorLevel,
			&condition, &horizons); err != nil {
			return nil, fmt.Errorf("scan run transaction: %w", err)
		}
		rec.MarketCondition = contracts.MarketCondition(condition)
		if err := json.Unmarshal(horizons, &rec.Horizons); err != nil {
			return nil, fmt.Errorf("decode horizons of row %d: %w", rec.Row, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read run transactions: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// recordRow lists the copy values in runTransactionColumns order
func recordRow(runID string, rec contracts.TransactionRecord) ([]any, error) {
	horizons, err := json.Marshal(rec.Horizons)
	if err != nil {
		return nil, fmt.Errorf("encode horizons of row %d: %w", rec.Row, err)
	}
	return []any{
		runID, rec.Row, rec.OwnerCIK, rec.OwnerName, rec.Ticker, rec.IssuerName, rec.Sector, rec.TransDate,
		rec.TotalValue, rec.AdjustedTotalValue, rec.MarketLevel, rec.SectorLevel, string(rec.MarketCondition),
		string(horizons),
	}, nil
}

func (s *Store) queryProfiles(ctx context.Context, query string, args ...any) ([]contracts.InvestorProfile, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	profiles := []contracts.InvestorProfile{}
	for rows.Next() {
		var (
			p                      contracts.InvestorProfile
			capCategory            string
			qOwn, qMarket, qSector []int32
		)
		if err := rows.Scan(
			&p.OwnerCIK, &p.OwnerName,
			&p.WeightedReturn6M, &p.WeightedReturn1Y, &p.WeightedReturn18M,
			&p.WeightedSP5006M, &p.WeightedSP5001Y, &p.WeightedSP50018M,
			&p.WeightedSector6M, &p.WeightedSector1Y, &p.WeightedSector18M,
			&p.ReturnVsSP5006M, &p.ReturnVsSP5001Y, &p.ReturnVsSP50018M,
			&p.ReturnVsSector6M, &p.ReturnVsSector1Y, &p.ReturnVsSector18M,
			&p.PctPositiveVsSP5006M, &p.PctPositiveVsSP5001Y, &p.PctPositiveVsSector6M,
			&p.TransactionCount, &p.ExcludedTransactionCount,
			&p.MinTransactionValue, &p.AvgTransactionValue, &p.TotalTransactionValue,
			&p.AvgDaysBetweenTransactions, &p.NumberOfCompanies, &p.UniqueTransactionYears,
			&p.EarliestTransactionYear, &p.MostRecentTransactionYear,
			&p.MostCommonCompany, &p.MostActiveSector, &capCategory,
			&qOwn, &qMarket, &qSector,
		); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.MostCommonCompanyCapCategory = contracts.CapBucket(capCategory)
		p.Qualifying = contracts.QualifyingRows{Own: counts(qOwn), Market: counts(qMarket), Sector: counts(qSector)}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// profileArgs lists the insert arguments in profileColumns order
func profileArgs(p *contracts.InvestorProfile) []any {
	return []any{
		p.OwnerCIK, p.OwnerName,
		p.WeightedReturn6M, p.WeightedReturn1Y, p.WeightedReturn18M,
		p.WeightedSP5006M, p.WeightedSP5001Y, p.WeightedSP50018M,
		p.WeightedSector6M, p.WeightedSector1Y, p.WeightedSector18M,
		p.ReturnVsSP5006M, p.ReturnVsSP5001Y, p.ReturnVsSP50018M,
		p.ReturnVsSector6M, p.ReturnVsSector1Y, p.ReturnVsSector18M,
		p.PctPositiveVsSP5006M, p.PctPositiveVsSP5001Y, p.PctPositiveVsSector6M,
		p.TransactionCount, p.ExcludedTransactionCount,
		p.MinTransactionValue, p.AvgTransactionValue, p.TotalTransactionValue,
		p.AvgDaysBetweenTransactions, p.NumberOfCompanies, p.UniqueTransactionYears,
		p.EarliestTransactionYear, p.MostRecentTransactionYear,
		p.MostCommonCompany, p.MostActiveSector, string(p.MostCommonCompanyCapCategory),
		int32s(p.Qualifying.Own), int32s(p.Qualifying.Market), int32s(p.Qualifying.Sector),
	}
}

func int32s(v [contracts.NumHorizons]int) []int32 {
	out := make([]int32, len(v))
	for i, n := range v {
		out[i] = int32(n)
	}
	return out
}

func counts(v []int32) [contracts.NumHorizons]int {
	var out [contracts.NumHorizons]int
	for i := 0; i < len(v) && i < len(out); i++ {
		out[i] = int(v[i])
	}
	return out
}

// PruneRuns deletes all but the keep most recent runs; profiles,
// diagnostics and run transactions go with them
func (s *Store) PruneRuns(ctx context.Context, keep int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM insider.attribution_runs
		WHERE run_id NOT IN (
			SELECT run_id FROM insider.attribution_runs
			ORDER BY started_at DESC
			LIMIT $1
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
