package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aurum-go/aurum"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrationRunCmd)
	rootCmd.AddCommand(migrationRollbackCmd)
	rootCmd.AddCommand(migrationStatusCmd)
	rootCmd.AddCommand(migrationGenerateCmd)
}

var migrationRunCmd = &cobra.Command{
	Use:   "migration:run",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		engine, err := bootEngine()
		if err != nil {
			return err
		}
		defer engine.Close() //nolint:errcheck

		runner := engine.Migrations()
		runner.DryRun = dryRun

		if err := runner.MigrateToLatest(context.Background()); err != nil {
			return err
		}
		return printStatus(runner)
	},
}

func init() {
	migrationRunCmd.Flags().Bool("dry-run", false, "report what would run without executing any DDL")
}

var migrationRollbackCmd = &cobra.Command{
	Use:   "migration:rollback",
	Short: "Reverse the most recently applied migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := bootEngine()
		if err != nil {
			return err
		}
		defer engine.Close() //nolint:errcheck

		if err := engine.Migrations().RollbackLast(context.Background()); err != nil {
			return err
		}
		return printStatus(engine.Migrations())
	},
}

var migrationStatusCmd = &cobra.Command{
	Use:   "migration:status",
	Short: "Show applied/pending migration counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := bootEngine()
		if err != nil {
			return err
		}
		defer engine.Close() //nolint:errcheck

		return printStatus(engine.Migrations())
	},
}

var migrationGenerateCmd = &cobra.Command{
	Use:   "migration:generate [description]",
	Short: "Scaffold a new migration unit file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		pkg, _ := cmd.Flags().GetString("package")

		engine, err := bootEngine()
		if err != nil {
			return err
		}
		defer engine.Close() //nolint:errcheck

		version, path, err := engine.GenerateMigration(dir, pkg, args[0], time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("generated %s (version %s)\n", path, version)
		return nil
	},
}

func init() {
	migrationGenerateCmd.Flags().String("dir", "migrations", "directory to write the migration unit into")
	migrationGenerateCmd.Flags().String("package", "migrations", "package name for the generated migration unit")
}

func printStatus(runner *aurum.MigrationRunner) error {
	status, err := runner.Status(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("applied: %d  pending: %d  total known: %d  latest: %s\n",
		status.AppliedCount, status.PendingCount, status.TotalKnown, status.LatestAppliedVersion)
	return nil
}
