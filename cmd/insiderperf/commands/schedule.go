package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/insiderperf/internal/pipeline"
	"github.com/wonny/insiderperf/internal/runner"
	"github.com/wonny/insiderperf/internal/scheduler"
	"github.com/wonny/insiderperf/internal/scheduler/jobs"
)

// scheduleCmd groups scheduler commands
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Scheduled recompute and maintenance",
	Long: `Runs the attribution recompute and run retention on a cron schedule.

Subcommands:
  start   - Start the scheduler daemon
  list    - List registered jobs
  run     - Run one job now

Example:
  go run ./cmd/insiderperf schedule start
  go run ./cmd/insiderperf schedule run attribution`,
}

var (
	scheduleStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Registers every job and runs until interrupted.

Registered jobs:
- attribution: SCHEDULE_CRON (default weekdays 22:30)
- run_retention: Sundays 03:00, keeps the newest RUN_RETENTION runs`,
		Args: cobra.NoArgs,
		RunE: runScheduleStart,
	}

	scheduleListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		Args:  cobra.NoArgs,
		RunE:  runScheduleList,
	}

	scheduleRunCmd = &cobra.Command{
		Use:   "run <job_name>",
		Short: "Run one job now and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleJob,
	}
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleStartCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)
}

func runScheduleStart(cmd *cobra.Command, args []string) error {
	sched, closeDB, err := initScheduler(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	sched.Start()

	out := cmd.OutOrStdout()
	PrintSuccess(out, "Scheduler started")
	printJobs(out, sched)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	sched, closeDB, err := initScheduler(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	printJobs(cmd.OutOrStdout(), sched)
	return nil
}

func runScheduleJob(cmd *cobra.Command, args []string) error {
	// a manual run reports the first failure instead of waiting out retries
	sched, closeDB, err := initScheduler(cmd.Context(), scheduler.WithRetry(0, 0))
	if err != nil {
		return err
	}
	defer closeDB()

	result, err := sched.RunJob(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintKeyValue(out, "Job", result.JobName, 10)
	PrintKeyValue(out, "Attempts", fmt.Sprintf("%d", result.Attempts), 10)
	PrintKeyValue(out, "Duration", result.Duration.String(), 10)
	if !result.Success {
		return fmt.Errorf("job %s failed: %s", result.JobName, result.Error)
	}
	PrintSuccess(out, "Job completed")
	return nil
}

func printJobs(out io.Writer, sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	widths := []int{16, 18, 20}
	PrintTableHeader(out, []string{"Job", "Schedule", "Next run"}, widths)
	for _, name := range sched.GetAllJobs() {
		next := "-"
		if t, err := sched.NextRun(name); err == nil && !t.IsZero() {
			next = t.Format(time.DateTime)
		}
		PrintTableRow(out, []string{name, stats[name].Schedule, next}, widths)
	}
}

// initScheduler wires the jobs to the store. The returned function closes the pool.
func initScheduler(ctx context.Context, opts ...scheduler.Option) (*scheduler.Scheduler, func(), error) {
	attribution, err := loadAttribution()
	if err != nil {
		return nil, nil, err
	}

	st, closeDB, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	r := runner.New(st, pipeline.New(log, nil), attribution, cfg.Pipeline.Workers, nil, log)

	sched := scheduler.New(log, opts...)
	for _, job := range []scheduler.Job{
		jobs.NewAttributionJob(r, cfg.Schedule.Cron, log),
		jobs.NewRunRetentionJob(st, cfg.Schedule.KeepRuns, log),
	} {
		if err := sched.AddJob(job); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("register job %s: %w", job.Name(), err)
		}
	}

	return sched, closeDB, nil
}
