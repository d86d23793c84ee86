package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/onset.picker/internal/db"
	"github.com/banshee-data/onset.picker/internal/query"
	"github.com/banshee-data/onset.picker/internal/units"
)

type queryOptions struct {
	runID   string
	limit   int
	records bool
	query   queryFlags
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List stored runs or extract picks from one",
		Example: `  picker query --db picks.db
  picker query --db picks.db --run 0b6c... --select 0,1 --source primary
  picker query --db picks.db --run 0b6c... --records`,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := rootOpts.openDB(cmd)
			if err != nil {
				return err
			}
			defer database.Close()
			store := db.NewRunStore(database)

			if opts.runID == "" {
				return listRuns(cmd, rootOpts, store, opts.limit)
			}
			recs, err := store.Records(opts.runID)
			if err != nil {
				return err
			}
			if opts.records {
				if rootOpts.JSON {
					return writeJSON(cmd, recs)
				}
				writeRecords(cmd, recs)
				return nil
			}
			items, err := opts.query.extract(query.New(query.Records(recs)))
			if err != nil {
				return err
			}
			return writeItems(cmd, rootOpts, items, opts.query)
		},
	}

	cmd.Flags().StringVar(&opts.runID, "run", "", "run ID to query")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "maximum runs to list (0 for all)")
	cmd.Flags().BoolVar(&opts.records, "records", false, "print every iteration record of the run")
	opts.query.register(cmd)

	return cmd
}

func listRuns(cmd *cobra.Command, rootOpts *RootOptions, store *db.RunStore, limit int) error {
	runs, err := store.List(limit)
	if err != nil {
		return err
	}
	if rootOpts.JSON {
		return writeJSON(cmd, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored runs.")
		return nil
	}
	headers := []string{"Run", "Trace", "Channel", "Started", "Elapsed", "Accepted"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.RunID,
			r.TraceID,
			r.Channel,
			units.FormatTime(r.StartedAt),
			r.Elapsed.String(),
			strconv.Itoa(r.AcceptedCount) + "/" + strconv.Itoa(r.MaxIterations),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight}))
	return nil
}
