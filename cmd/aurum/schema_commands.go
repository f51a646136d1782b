package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(schemaDiffCmd)
}

// schemaDiffCmd implements the "migration diff" surface spec.md §6
// describes: diffing a registered entity's declarative schema against
// the live database and either previewing the result or persisting it
// as a migration unit.
var schemaDiffCmd = &cobra.Command{
	Use:   "migration:diff [entity]",
	Short: "Diff a registered entity's schema against the live database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		persist, _ := cmd.Flags().GetBool("persist")
		dir, _ := cmd.Flags().GetString("dir")
		pkg, _ := cmd.Flags().GetString("package")

		engine, err := bootEngine()
		if err != nil {
			return err
		}
		defer engine.Close() //nolint:errcheck

		class, ok := registeredEntities[args[0]]
		if !ok {
			return fmt.Errorf("no entity registered under name %q (edit registeredEntities in bootstrap.go)", args[0])
		}

		descriptor, err := engine.Describe(class)
		if err != nil {
			return err
		}

		differ := engine.NewDiffer()
		plan, err := differ.Diff(context.Background(), descriptor)
		if err != nil {
			return err
		}

		if persist {
			version, path, err := plan.PersistedUnitFile(nil, dir, pkg, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s (version %s)\n", path, version)
			return nil
		}

		switch output {
		case "declarative":
			fmt.Print(plan.BuilderBlock())
		case "raw-ddl":
			fmt.Print(plan.TextualPreview())
		default:
			fmt.Print(plan.TextualPreview())
			fmt.Print(plan.BuilderBlock())
		}
		return nil
	},
}

func init() {
	schemaDiffCmd.Flags().String("output", "both", "declarative, raw-ddl, or both")
	schemaDiffCmd.Flags().Bool("persist", false, "write the diff as a migration unit instead of previewing it")
	schemaDiffCmd.Flags().String("dir", "migrations", "directory to write a persisted diff into")
	schemaDiffCmd.Flags().String("package", "migrations", "package name for a persisted diff")
}
