package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/onset.picker/internal/db"
)

// NewMigrateCommand creates the migrate command group.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the run database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := rootOpts.openDB(cmd)
			if err != nil {
				return err
			}
			defer database.Close()
			return printVersion(cmd, rootOpts, database)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openRaw(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer database.Close()
			if err := database.MigrateDown(); err != nil {
				return err
			}
			return printVersion(cmd, rootOpts, database)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openRaw(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer database.Close()
			return printVersion(cmd, rootOpts, database)
		},
	})

	return cmd
}

func openRaw(cmd *cobra.Command, rootOpts *RootOptions) (*db.DB, error) {
	if rootOpts.DBPath == "" {
		return nil, fmt.Errorf("--db is required")
	}
	return db.Open(rootOpts.DBPath, db.WithLogger(rootOpts.logger(cmd.ErrOrStderr())))
}

func printVersion(cmd *cobra.Command, rootOpts *RootOptions, database *db.DB) error {
	v, dirty, err := database.MigrateVersion()
	if err != nil {
		return err
	}
	latest, err := db.LatestMigrationVersion()
	if err != nil {
		return err
	}
	if rootOpts.JSON {
		return writeJSON(cmd, map[string]any{"version": v, "dirty": dirty, "latest": latest})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (latest %d, dirty=%t)\n", v, latest, dirty)
	return nil
}
