package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/insiderperf/internal/store"
	"github.com/wonny/insiderperf/pkg/database"
)

// dbCmd groups database commands
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "PostgreSQL connection and schema",
}

var (
	dbCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "Test the database connection and show pool statistics",
		Args:  cobra.NoArgs,
		RunE:  runDBCheck,
	}

	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create the insider schema and tables if missing",
		Args:  cobra.NoArgs,
		RunE:  runDBMigrate,
	}
)

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbCheckCmd)
	dbCmd.AddCommand(dbMigrateCmd)
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	PrintKeyValue(out, "Env", cfg.Env, 14)
	PrintKeyValue(out, "Database URL", maskPassword(cfg.Database.URL), 14)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	PrintSuccess(out, "Database connection healthy")
	PrintKeyValue(out, "Response time", status.ResponseTime.String(), 14)
	PrintKeyValue(out, "Max conns", fmt.Sprintf("%d", status.Stats.MaxConns), 14)
	PrintKeyValue(out, "Total conns", fmt.Sprintf("%d", status.Stats.TotalConns), 14)
	PrintKeyValue(out, "Idle conns", fmt.Sprintf("%d", status.Stats.IdleConns), 14)
	return nil
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := database.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.New(db.Pool).EnsureSchema(ctx); err != nil {
		return err
	}
	PrintSuccess(cmd.OutOrStdout(), "Schema up to date")
	return nil
}

// maskPassword hides the password of a connection URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
