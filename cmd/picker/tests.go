package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/onset.picker/internal/validation"
)

// NewTestsCommand creates the tests command.
func NewTestsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tests",
		Short: "List the registered validation tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := validation.DefaultRegistry().List()
			if rootOpts.JSON {
				return writeJSON(cmd, infos)
			}
			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, []string{
					info.Name,
					strings.Join(info.Params, ", "),
					strconv.Itoa(info.Required),
					info.Description,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Test", "Params", "Required", "Description"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
}
