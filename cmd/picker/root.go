package main

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/banshee-data/onset.picker/internal/db"
	"github.com/banshee-data/onset.picker/internal/monitoring"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	JSON    bool
	DBPath  string
}

// NewRootCommand creates the picker command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "picker",
		Short:         "Iterative seismic onset picker",
		Long:          "Detect, validate and refine phase onsets on a single waveform channel.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every picker round to stderr")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "write JSON instead of tables")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "sqlite database for stored runs")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTestsCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// logger returns a stderr logger when --verbose is set.
func (o *RootOptions) logger(w io.Writer) monitoring.Logger {
	if !o.Verbose {
		return monitoring.Nop
	}
	return monitoring.To(log.New(w, "[picker] ", log.LstdFlags))
}

// openDB opens and migrates the --db database.
func (o *RootOptions) openDB(cmd *cobra.Command) (*db.DB, error) {
	if o.DBPath == "" {
		return nil, fmt.Errorf("--db is required")
	}
	return db.OpenMigrated(o.DBPath, db.WithLogger(o.logger(cmd.ErrOrStderr())))
}
