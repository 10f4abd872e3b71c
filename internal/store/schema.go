// Package store persists attribution inputs and run outputs in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested run or profile does not exist
var ErrNotFound = errors.New("not found")

// Store is the PostgreSQL repository
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store over an open pool
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS insider`,

	`CREATE TABLE IF NOT EXISTS insider.transactions (
		row_num           INTEGER PRIMARY KEY,
		owner_cik         TEXT NOT NULL,
		owner_name        TEXT NOT NULL,
		ticker            TEXT NOT NULL DEFAULT '',
		issuer_name       TEXT NOT NULL DEFAULT '',
		gics_sector       TEXT NOT NULL DEFAULT '',
		gics_sub_industry TEXT NOT NULL DEFAULT '',
		trans_date        TIMESTAMP NOT NULL,
		trans_shares      DOUBLE PRECISION,
		trans_price       DOUBLE PRECISION,
		split_adjustment  DOUBLE PRECISION,
		adjusted_shares   DOUBLE PRECISION,
		adjusted_price    DOUBLE PRECISION,
		market_cap        DOUBLE PRECISION,
		price_6m          DOUBLE PRECISION,
		price_1y          DOUBLE PRECISION,
		price_18m         DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_owner ON insider.transactions (owner_cik, owner_name)`,

	`CREATE TABLE IF NOT EXISTS insider.benchmark_levels (
		level_date TIMESTAMP NOT NULL,
		index_name TEXT NOT NULL,
		level      DOUBLE PRECISION,
		PRIMARY KEY (level_date, index_name)
	)`,

	`CREATE TABLE IF NOT EXISTS insider.attribution_runs (
		run_id        TEXT PRIMARY KEY,
		config_id     TEXT NOT NULL DEFAULT '',
		config_hash   TEXT NOT NULL,
		started_at    TIMESTAMPTZ NOT NULL,
		duration_ms   BIGINT NOT NULL,
		transactions  INTEGER NOT NULL,
		investors     INTEGER NOT NULL,
		diagnostics   INTEGER NOT NULL,
		quality_score DOUBLE PRECISION NOT NULL,
		coverage      JSONB NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started ON insider.attribution_runs (started_at DESC)`,

	`CREATE TABLE IF NOT EXISTS insider.investor_profiles (
		run_id                  TEXT NOT NULL REFERENCES insider.attribution_runs (run_id) ON DELETE CASCADE,
		owner_cik               TEXT NOT NULL,
		owner_name              TEXT NOT NULL,
		weighted_return_6m      DOUBLE PRECISION,
		weighted_return_1y      DOUBLE PRECISION,
		weighted_return_18m     DOUBLE PRECISION,
		weighted_sp500_6m       DOUBLE PRECISION,
		weighted_sp500_1y       DOUBLE PRECISION,
		weighted_sp500_18m      DOUBLE PRECISION,
		weighted_sector_6m      DOUBLE PRECISION,
		weighted_sector_1y      DOUBLE PRECISION,
		weighted_sector_18m     DOUBLE PRECISION,
		return_vs_sp500_6m      DOUBLE PRECISION,
		return_vs_sp500_1y      DOUBLE PRECISION,
		return_vs_sp500_18m     DOUBLE PRECISION,
		return_vs_sector_6m     DOUBLE PRECISION,
		return_vs_sector_1y     DOUBLE PRECISION,
		return_vs_sector_18m    DOUBLE PRECISION,
		pct_positive_vs_sp500_6m  DOUBLE PRECISION,
		pct_positive_vs_sp500_1y  DOUBLE PRECISION,
		pct_positive_vs_sector_6m DOUBLE PRECISION,
		transaction_count       INTEGER NOT NULL,
		excluded_count          INTEGER NOT NULL,
		min_transaction_value   DOUBLE PRECISION,
		avg_transaction_value   DOUBLE PRECISION,
		total_transaction_value DOUBLE PRECISION,
		avg_days_between        INTEGER,
		number_of_companies     INTEGER,
		unique_years            INTEGER,
		earliest_year           INTEGER,
		most_recent_year        INTEGER,
		most_common_company     TEXT NOT NULL DEFAULT '',
		most_active_sector      TEXT NOT NULL DEFAULT '',
		cap_category            TEXT NOT NULL DEFAULT '',
		qualifying_own          INTEGER[] NOT NULL,
		qualifying_market       INTEGER[] NOT NULL,
		qualifying_sector       INTEGER[] NOT NULL,
		PRIMARY KEY (run_id, owner_cik, owner_name)
	)`,

	`CREATE TABLE IF NOT EXISTS insider.diagnostics (
		run_id      TEXT NOT NULL REFERENCES insider.attribution_runs (run_id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		code        TEXT NOT NULL,
		severity    TEXT NOT NULL,
		owner_cik   TEXT NOT NULL DEFAULT '',
		owner_name  TEXT NOT NULL DEFAULT '',
		row_num     INTEGER NOT NULL DEFAULT 0,
		ticker      TEXT NOT NULL DEFAULT '',
		column_name TEXT NOT NULL DEFAULT '',
		count       INTEGER NOT NULL DEFAULT 0,
		detail      TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_diagnostics_code ON insider.diagnostics (run_id, code)`,

	`CREATE TABLE IF NOT EXISTS insider.run_transactions (
		run_id           TEXT NOT NULL REFERENCES insider.attribution_runs (run_id) ON DELETE CASCADE,
		row_num          INTEGER NOT NULL,
		owner_cik        TEXT NOT NULL,
		owner_name       TEXT NOT NULL,
		ticker           TEXT NOT NULL DEFAULT '',
		issuer_name      TEXT NOT NULL DEFAULT '',
		gics_sector      TEXT NOT NULL DEFAULT '',
		trans_date       TIMESTAMP NOT NULL,
		total_value      DOUBLE PRECISION,
		adjusted_value   DOUBLE PRECISION,
		sp500_level      DOUBLE PRECISION,
		sector_level     DOUBLE PRECISION,
		market_condition TEXT NOT NULL DEFAULT '',
		horizons         JSONB NOT NULL,
		PRIMARY KEY (run_id, row_num)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_run_transactions_owner ON insider.run_transactions (run_id, owner_cik, trans_date DESC)`,

	// Diagnostics raised while reading the imported files
	`CREATE TABLE IF NOT EXISTS insider.load_diagnostics (
		seq         INTEGER NOT NULL,
		code        TEXT NOT NULL,
		severity    TEXT NOT NULL,
		owner_cik   TEXT NOT NULL DEFAULT '',
		owner_name  TEXT NOT NULL DEFAULT '',
		row_num     INTEGER NOT NULL DEFAULT 0,
		ticker      TEXT NOT NULL DEFAULT '',
		column_name TEXT NOT NULL DEFAULT '',
		count       INTEGER NOT NULL DEFAULT 0,
		detail      TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (seq)
	)`,
}

// EnsureSchema creates the insider schema and tables if they do not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
