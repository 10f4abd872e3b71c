package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/insiderperf/internal/attribcfg"
	"github.com/wonny/insiderperf/internal/pipeline"
	"github.com/wonny/insiderperf/internal/store"
	"github.com/wonny/insiderperf/pkg/config"
	"github.com/wonny/insiderperf/pkg/database"
	"github.com/wonny/insiderperf/pkg/logger"
)

var (
	// Global flags
	attributionFile string
	trace           bool
	verbose         bool

	// Set in PersistentPreRunE
	cfg           *config.Config
	log           *logger.Logger
	shutdownTrace func(context.Context) error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "insiderperf",
	Short: "Insider trading performance attribution",
	Long: `insiderperf measures how insider purchases performed against the
S&P 500 and the matching sector index, and aggregates the results into
one value-weighted profile per investor.

Usage:
  go run ./cmd/insiderperf [command]

Examples:
  go run ./cmd/insiderperf attribute transactions.csv benchmarks.csv --out profiles.csv
  go run ./cmd/insiderperf import transactions.csv benchmarks.csv
  go run ./cmd/insiderperf run
  go run ./cmd/insiderperf serve
  go run ./cmd/insiderperf schedule start`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		if attributionFile != "" {
			cfg.Pipeline.ConfigPath = attributionFile
		}

		log = logger.New(cfg)

		if trace {
			shutdownTrace, err = pipeline.InstallStdoutTracer(os.Stderr)
			if err != nil {
				return err
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTrace != nil {
			return shutdownTrace(context.Background())
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&attributionFile, "config", "", "attribution config YAML (default: ATTRIBUTION_CONFIG or built-in)")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "print pipeline spans to stderr")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadAttribution returns the attribution config named by --config or
// ATTRIBUTION_CONFIG, or the built-in defaults
func loadAttribution() (*attribcfg.Config, error) {
	if cfg.Pipeline.ConfigPath == "" {
		return attribcfg.Default(), nil
	}

	attribution, _, err := attribcfg.Load(cfg.Pipeline.ConfigPath)
	if err != nil {
		return nil, err
	}

	for _, w := range attribcfg.Warn(attribution) {
		log.WithFields(map[string]interface{}{
			"code": w.Code,
			"path": cfg.Pipeline.ConfigPath,
		}).Warn(w.Message)
	}
	return attribution, nil
}

// openStore connects to PostgreSQL and makes sure the schema exists.
// The returned function closes the pool.
func openStore(ctx context.Context) (*store.Store, func(), error) {
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	st := store.New(db.Pool)
	if err := st.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return st, db.Close, nil
}
