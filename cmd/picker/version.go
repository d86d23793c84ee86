package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/onset.picker/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.JSON {
				return writeJSON(cmd, map[string]string{
					"version":    version.Version,
					"git_sha":    version.GitSHA,
					"build_time": version.BuildTime,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "picker %s\n", version.String())
			return nil
		},
	}
}
