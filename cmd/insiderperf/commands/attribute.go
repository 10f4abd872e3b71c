package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/insiderperf/internal/pipeline"
	"github.com/wonny/insiderperf/internal/tabular"
)

// attributeCmd computes investor profiles from CSV files
var attributeCmd = &cobra.Command{
	Use:   "attribute <transactions.csv> <benchmarks.csv>",
	Short: "Compute investor profiles from CSV files",
	Long: `Reads the transaction table and the daily benchmark table, computes
forward returns for each purchase and aggregates them into one profile per
investor.

Profiles are written to --out, or stdout when omitted. The run summary goes
to stderr.

Example:
  go run ./cmd/insiderperf attribute transactions.csv benchmarks.csv --out profiles.csv
  go run ./cmd/insiderperf attribute tx.csv bench.csv --with-coverage --diagnostics diags.csv
  go run ./cmd/insiderperf attribute tx.csv bench.csv --save`,
	Args: cobra.ExactArgs(2),
	RunE: runAttribute,
}

var (
	attributeOut             string
	attributeTransactionsOut string
	attributeDiagnosticsOut  string
	attributeWithCoverage    bool
	attributeWorkers         int
	attributeSave            bool
)

func init() {
	rootCmd.AddCommand(attributeCmd)

	attributeCmd.Flags().StringVarP(&attributeOut, "out", "o", "", "profile CSV path (default stdout)")
	attributeCmd.Flags().StringVar(&attributeTransactionsOut, "transactions-out", "", "write the enriched transaction table to this path")
	attributeCmd.Flags().StringVar(&attributeDiagnosticsOut, "diagnostics", "", "write diagnostics to this path")
	attributeCmd.Flags().BoolVar(&attributeWithCoverage, "with-coverage", false, "append excluded and qualifying row counts to the profile CSV")
	attributeCmd.Flags().IntVarP(&attributeWorkers, "workers", "w", 0, "parallel partitions (default PIPELINE_WORKERS)")
	attributeCmd.Flags().BoolVar(&attributeSave, "save", false, "also persist the run to PostgreSQL")
}

func runAttribute(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	attribution, err := loadAttribution()
	if err != nil {
		return err
	}

	in, err := readInput(args[0], args[1])
	if err != nil {
		return err
	}

	workers := attributeWorkers
	if workers <= 0 {
		workers = cfg.Pipeline.Workers
	}

	p := pipeline.New(log, nil)
	result, err := p.Run(ctx, in, pipeline.RunConfig{
		Workers:     workers,
		Attribution: attribution,
	})
	if err != nil {
		return fmt.Errorf("attribution run: %w", err)
	}

	if err := writeOutput(attributeOut, cmd.OutOrStdout(), func(w io.Writer) error {
		return tabular.WriteProfiles(w, result.Profiles, tabular.ProfileOptions{WithCoverage: attributeWithCoverage})
	}); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}

	if attributeTransactionsOut != "" {
		if err := writeOutput(attributeTransactionsOut, nil, func(w io.Writer) error {
			return tabular.WriteTransactions(w, result.Transactions)
		}); err != nil {
			return fmt.Errorf("write transactions: %w", err)
		}
	}

	if attributeDiagnosticsOut != "" {
		if err := writeOutput(attributeDiagnosticsOut, nil, func(w io.Writer) error {
			return tabular.WriteDiagnostics(w, result.Diagnostics)
		}); err != nil {
			return fmt.Errorf("write diagnostics: %w", err)
		}
	}

	stderr := cmd.ErrOrStderr()
	PrintRunSummary(stderr, result)
	PrintDiagnosticCounts(stderr, result.Diagnostics)

	if attributeSave {
		st, closeDB, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := st.SaveRun(ctx, result, attribution.Meta.ConfigID); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		PrintSuccess(stderr, "Run saved as "+result.RunID)
	}

	return nil
}

// readInput parses both CSV files into a pipeline input
func readInput(transactionsPath, benchmarkPath string) (pipeline.Input, error) {
	tf, err := os.Open(transactionsPath)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("open transactions: %w", err)
	}
	defer tf.Close()

	txs, txDiags, err := tabular.ReadTransactions(tf)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("read %s: %w", transactionsPath, err)
	}

	bf, err := os.Open(benchmarkPath)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("open benchmark: %w", err)
	}
	defer bf.Close()

	series, benchDiags, err := tabular.ReadBenchmark(bf)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("read %s: %w", benchmarkPath, err)
	}

	log.WithFields(map[string]interface{}{
		"transactions": len(txs),
		"benchmark":    series.Len(),
		"columns":      series.Columns(),
	}).Info("Input loaded")

	return pipeline.Input{
		Transactions:    txs,
		Benchmark:       series,
		LoadDiagnostics: append(txDiags, benchDiags...),
	}, nil
}

// writeOutput runs fn against path, or against fallback when path is empty
func writeOutput(path string, fallback io.Writer, fn func(io.Writer) error) error {
	if path == "" {
		return fn(fallback)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
