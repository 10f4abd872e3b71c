package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// importCmd loads CSV inputs into PostgreSQL
var importCmd = &cobra.Command{
	Use:   "import <transactions.csv> <benchmarks.csv>",
	Short: "Replace the stored transactions and benchmark levels",
	Long: `Parses both CSV files and replaces the insider.transactions and
insider.benchmark_levels tables with their contents. Diagnostics raised
while parsing are stored with them. Later "run", "serve"
and "schedule" recompute from these tables.

Example:
  go run ./cmd/insiderperf import transactions.csv benchmarks.csv`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	in, err := readInput(args[0], args[1])
	if err != nil {
		return err
	}

	st, closeDB, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	counts, err := st.ImportInput(ctx, in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintSuccess(out, fmt.Sprintf("Imported %d transactions and %d benchmark levels", counts.Transactions, counts.BenchmarkLevels))
	if counts.Diagnostics > 0 {
		PrintWarning(out, fmt.Sprintf("%d load diagnostics stored; every run reports them again", counts.Diagnostics))
	}
	return nil
}
