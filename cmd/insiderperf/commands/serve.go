package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/wonny/insiderperf/internal/api"
	"github.com/wonny/insiderperf/internal/api/handlers"
	"github.com/wonny/insiderperf/internal/pipeline"
	"github.com/wonny/insiderperf/internal/runner"
	"github.com/wonny/insiderperf/pkg/redis"
)

// serveCmd starts the read API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Starts the REST API over the stored runs.

Endpoints:
  GET  /health                        - Health check
  GET  /metrics                       - Prometheus metrics
  GET  /api/profiles                  - Screened profiles of the latest run
  GET  /api/profiles/{owner}          - Profiles of one owner code
  GET  /api/profiles/{owner}/transactions - Enriched transactions, newest first
  GET  /api/runs/latest               - Latest run summary
  GET  /api/runs/latest/diagnostics   - Latest run diagnostics (?code=)
  POST /api/runs                      - Recompute from stored inputs

Example:
  go run ./cmd/insiderperf serve
  go run ./cmd/insiderperf serve --port 8080 --no-recompute`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	servePort        string
	serveNoRecompute bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API port (default PORT)")
	serveCmd.Flags().BoolVar(&serveNoRecompute, "no-recompute", false, "disable POST /api/runs")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if servePort != "" {
		cfg.Port = servePort
	}

	attribution, err := loadAttribution()
	if err != nil {
		return err
	}

	st, closeDB, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer rc.Close()

	cache := redis.NewCache(rc, "insiderperf")
	metrics := pipeline.NewMetrics()

	var recomputer handlers.Recomputer
	if !serveNoRecompute {
		recomputer = runner.New(st, pipeline.New(log, metrics), attribution, cfg.Pipeline.Workers, cache, log)
	}

	h := handlers.NewHandler(
		st,
		recomputer,
		cache,
		redis.NewRateLimiter(rc, "insiderperf"),
		redis.RecomputeRateLimit(cfg.API.RecomputeLimitPerHour),
		log,
	)
	limiter := rate.NewLimiter(rate.Limit(cfg.API.RateLimitRPS), cfg.API.RateLimitBurst)
	server := api.New(cfg, log, api.NewRouter(h, metrics.Handler(), limiter, log))

	out := cmd.OutOrStdout()
	PrintSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", cfg.Port))
	PrintKeyValue(out, "Redis", fmt.Sprintf("%v", rc.Enabled()), 10)
	PrintKeyValue(out, "Recompute", fmt.Sprintf("%v", recomputer != nil), 10)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(sigCtx); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}
