// Package main is aurum's thin CLI front end: migration:run,
// migration:rollback, migration:status, migration:generate and
// migration:diff, wired against the root aurum package
// exactly as application code would be. Mirrors the teacher pack's
// Cobra-based CLI front ends (cmd/astra, cmd/adonis) — a root command
// plus one file per command family.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aurum",
	Short: "Aurum — Go ORM Engine CLI",
	Long: `Aurum's command-line front end: running, rolling back and
generating migrations, and diffing the entities your application
registers against the live schema.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
