package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/insiderperf/internal/pipeline"
	"github.com/wonny/insiderperf/internal/runner"
)

// runCmd recomputes attribution from the stored inputs
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Recompute attribution from PostgreSQL and save the run",
	Long: `Loads the imported transactions and benchmark levels, runs the
attribution pipeline and stores profiles and diagnostics under a new run id.

Example:
  go run ./cmd/insiderperf run
  go run ./cmd/insiderperf run --config attribution.yaml --trace`,
	Args: cobra.NoArgs,
	RunE: runRecompute,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRecompute(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	attribution, err := loadAttribution()
	if err != nil {
		return err
	}

	st, closeDB, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	r := runner.New(st, pipeline.New(log, nil), attribution, cfg.Pipeline.Workers, nil, log)
	result, err := r.Recompute(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintRunSummary(out, result)
	PrintDiagnosticCounts(out, result.Diagnostics)
	return nil
}
