package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/autohaus/cos/internal/db"
)

func newMigrateCmd() *cobra.Command {
	var (
		configPath string
		seed       bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Runs the schema migration against the configured database.

With --seed, also loads the demo dataset: a small inventory, floorplan
notes, weekly revenue by lane, and one in-flight transport job. Seeding
is idempotent; re-running it never duplicates rows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.OutOrStdout(), configPath, cmd.Flags().Changed("config"), seed)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cos.yaml", "path to C-OS config file")
	cmd.Flags().BoolVar(&seed, "seed", false, "load the demo dataset after migrating")
	return cmd
}

func runMigrate(out io.Writer, configPath string, explicit, seed bool) error {
	cfg, err := loadConfig(configPath, explicit)
	if err != nil {
		return err
	}

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Migrating schema...")
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}

	if seed {
		fmt.Fprintln(out, "Seeding demo data...")
		if err := db.Seed(gdb); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "Done.")
	return nil
}
