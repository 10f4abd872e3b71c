// Package pipeline runs the attribution stages over one immutable input snapshot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wonny/insiderperf/internal/aggregate"
	"github.com/wonny/insiderperf/internal/attribcfg"
	"github.com/wonny/insiderperf/internal/benchmark"
	"github.com/wonny/insiderperf/internal/contracts"
	"github.com/wonny/insiderperf/internal/quality"
	"github.com/wonny/insiderperf/internal/returns"
	"github.com/wonny/insiderperf/pkg/logger"
)

// ErrMalformedInput marks structurally unusable input; the run aborts
var ErrMalformedInput = errors.New("malformed input")

// Stage names, in execution order
const (
	StageValidate  = "validate"
	StageReturns   = "returns"
	StageAggregate = "aggregate"
	StageCoverage  = "coverage"
)

// Input is the snapshot a run operates on
type Input struct {
	Transactions []*contracts.Transaction
	Benchmark    *benchmark.Series

	// Diagnostics raised while loading the input, e.g. unparseable numbers
	LoadDiagnostics []contracts.Diagnostic
}

// RunConfig holds configuration for a run
type RunConfig struct {
	RunID       string // generated when empty
	Workers     int
	Attribution *attribcfg.Config // defaults when nil
}

// RunResult holds the results of a complete run
type RunResult struct {
	RunID           string                      `json:"run_id"`
	ConfigHash      string                      `json:"config_hash"`
	StartedAt       time.Time                   `json:"started_at"`
	Duration        time.Duration               `json:"duration"`
	CompletedStages []string                    `json:"completed_stages"`
	Transactions    []*contracts.Transaction    `json:"-"`
	Profiles        []contracts.InvestorProfile `json:"-"`
	Diagnostics     []contracts.Diagnostic      `json:"-"`
	Coverage        *contracts.CoverageSnapshot `json:"coverage"`
}

// Pipeline coordinates the attribution stages
// ⭐ SSOT: stage ordering and parallel partitioning live here only
type Pipeline struct {
	logger  *logger.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// New creates a pipeline. A nil metrics gets a private registry.
func New(log *logger.Logger, metrics *Metrics) *Pipeline {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Pipeline{
		logger:  log.WithField("module", "pipeline"),
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
	}
}

// Metrics returns the pipeline's metrics
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Run executes validate → returns → aggregate → coverage.
// Transactions in the input are enriched in place.
func (p *Pipeline) Run(ctx context.Context, in Input, cfg RunConfig) (result *RunResult, err error) {
	if cfg.Attribution == nil {
		cfg.Attribution = attribcfg.Default()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("run_id", cfg.RunID),
		attribute.Int("transactions", len(in.Transactions)),
		attribute.Int("workers", cfg.Workers),
	))
	defer span.End()

	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		p.metrics.Runs.WithLabelValues(outcome).Inc()
	}()

	hash, err := attribcfg.Hash(cfg.Attribution)
	if err != nil {
		return nil, fmt.Errorf("hash attribution config: %w", err)
	}

	result = &RunResult{
		RunID:           cfg.RunID,
		ConfigHash:      hash,
		StartedAt:       time.Now().UTC(),
		CompletedStages: make([]string, 0, 4),
		Transactions:    in.Transactions,
	}

	log := p.logger.WithRun(cfg.RunID)
	log.WithFields(logger.Fields{
		"transactions": len(in.Transactions),
		"workers":      cfg.Workers,
		"config_hash":  hash,
	}).Info("Starting attribution run")

	diags := quality.NewCollector()
	diags.Add(in.LoadDiagnostics...)

	// validate
	if err := p.stage(ctx, StageValidate, func(ctx context.Context) error {
		return validateInput(in, cfg.Attribution)
	}); err != nil {
		return result, err
	}
	result.CompletedStages = append(result.CompletedStages, StageValidate)

	// returns
	if err := p.stage(ctx, StageReturns, func(ctx context.Context) error {
		return p.computeReturns(ctx, in, cfg, diags)
	}); err != nil {
		return result, err
	}
	result.CompletedStages = append(result.CompletedStages, StageReturns)

	// aggregate
	if err := p.stage(ctx, StageAggregate, func(ctx context.Context) error {
		profiles, err := p.aggregate(ctx, in.Transactions, cfg, diags)
		result.Profiles = profiles
		return err
	}); err != nil {
		return result, err
	}
	result.CompletedStages = append(result.CompletedStages, StageAggregate)

	// coverage
	_ = p.stage(ctx, StageCoverage, func(ctx context.Context) error {
		result.Coverage = quality.Coverage(in.Transactions)
		return nil
	})
	result.CompletedStages = append(result.CompletedStages, StageCoverage)

	result.Diagnostics = diags.Diagnostics()
	result.Duration = time.Since(result.StartedAt)

	p.metrics.Transactions.Add(float64(len(in.Transactions)))
	p.metrics.Investors.Add(float64(len(result.Profiles)))
	p.metrics.observeDiagnostics(diags.CountByCode())

	log.WithFields(logger.Fields{
		"investors":     len(result.Profiles),
		"diagnostics":   len(result.Diagnostics),
		"quality_score": result.Coverage.QualityScore,
		"duration":      result.Duration.Seconds(),
	}).Info("Attribution run completed")

	return result, nil
}

// stage wraps fn with a span and a duration observation
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s stage: %w", name, err)
	}
	return nil
}

// validateInput rejects input the calculator cannot process at all
func validateInput(in Input, cfg *attribcfg.Config) error {
	if in.Benchmark == nil || in.Benchmark.Len() == 0 {
		return fmt.Errorf("%w: %w", ErrMalformedInput, benchmark.ErrMissingSeriesData)
	}
	if !in.Benchmark.HasColumn(cfg.Benchmark.MarketColumn) {
		return fmt.Errorf("%w: %w: market column %q", ErrMalformedInput, benchmark.ErrUnknownColumn, cfg.Benchmark.MarketColumn)
	}

	missing := make(map[string]struct{})
	for _, tx := range in.Transactions {
		sector := strings.TrimSpace(tx.Sector)
		if sector != "" && !in.Benchmark.HasColumn(tx.Sector) {
			missing[tx.Sector] = struct{}{}
		}
		if tx.TransDate.IsZero() {
			return fmt.Errorf("%w: row %d has no transaction date", ErrMalformedInput, tx.Row)
		}
	}
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for s := range missing {
			names = append(names, s)
		}
		sort.Strings(names)
		return fmt.Errorf("%w: %w: sectors without benchmark column: %s",
			ErrMalformedInput, benchmark.ErrUnknownColumn, strings.Join(names, ", "))
	}
	return nil
}

// computeReturns enriches every transaction, partitioned by row
func (p *Pipeline) computeReturns(ctx context.Context, in Input, cfg RunConfig, diags *quality.Collector) error {
	calc, err := returns.NewCalculator(in.Benchmark, cfg.Attribution)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	return forEach(ctx, len(in.Transactions), cfg.Workers, func(i int) error {
		found, err := calc.Compute(in.Transactions[i])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}
		diags.Add(found...)
		return nil
	})
}

// aggregate builds one profile per investor, partitioned by investor
func (p *Pipeline) aggregate(ctx context.Context, txs []*contracts.Transaction, cfg RunConfig, diags *quality.Collector) ([]contracts.InvestorProfile, error) {
	groups := aggregate.GroupByInvestor(txs)
	agg := aggregate.NewAggregator(quality.NewValidator(cfg.Attribution.Validation), p.logger.Zerolog())

	profiles := make([]contracts.InvestorProfile, len(groups))
	err := forEach(ctx, len(groups), cfg.Workers, func(i int) error {
		profile, found := agg.Aggregate(groups[i])
		profiles[i] = profile
		diags.Add(found...)
		if profile.TransactionCount == 0 {
			p.logger.WithInvestor(profile.OwnerCIK, profile.OwnerName).Debug("no weighted transactions")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(map[string]interface{}{
		"investors": len(profiles),
	}).Debug("aggregation completed")

	return profiles, nil
}
