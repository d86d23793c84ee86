package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/banshee-data/onset.picker/internal/picks"
	"github.com/banshee-data/onset.picker/internal/query"
	"github.com/banshee-data/onset.picker/internal/units"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// queryFlags are the extraction flags shared by run and query.
type queryFlags struct {
	selector string
	sources  []string
	format   string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.selector, "select", "all", `ranks to extract: "all", "2" or "0,3"`)
	cmd.Flags().StringSliceVar(&q.sources, "source", []string{"refined"}, "time source per rank: primary or refined (cycled); primary when refinement is off")
	cmd.Flags().StringVar(&q.format, "format", query.Compact, "compact or verbose")
}

func (q *queryFlags) extract(e *query.Engine) ([]query.Item, error) {
	sel, err := query.ParseSelector(q.selector)
	if err != nil {
		return nil, err
	}
	return e.ExtractNames(sel, q.sources, q.format)
}

func writeItems(cmd *cobra.Command, opts *RootOptions, items []query.Item, q queryFlags) error {
	format := q.format
	if opts.JSON {
		return writeJSON(cmd, items)
	}
	if len(items) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No accepted picks with a %s time.\n", strings.Join(q.sources, " or "))
		return nil
	}

	headers := []string{"#", "Source", "Time", "Tag"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}
	verbose := format != query.Compact
	if verbose {
		headers = append(headers, "Iteration", "Primary", "Refined", "Tests")
		aligns = append(aligns, alignRight)
	}
	rows := make([][]string, 0, len(items))
	for i, it := range items {
		row := []string{strconv.Itoa(i), string(it.Source), units.FormatTime(it.Time), it.Tag}
		if verbose && it.Record != nil {
			row = append(row,
				strconv.Itoa(it.Record.Iteration),
				formatTimePtr(it.Record.PrimaryTime),
				formatTimePtr(it.Record.RefinedTime),
				formatResults(it.Record.TestResults),
			)
		}
		rows = append(rows, row)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
	return nil
}

func writeRecords(cmd *cobra.Command, recs []picks.Record) {
	headers := []string{"Iteration", "Primary", "Tag", "Verdict", "Refined", "Tests"}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		verdict := "-"
		if r.Accepted != nil {
			verdict = "rejected"
			if *r.Accepted {
				verdict = "accepted"
			}
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Iteration),
			formatTimePtr(r.PrimaryTime),
			r.PrimaryTag,
			verdict,
			formatTimePtr(r.RefinedTime),
			formatResults(r.TestResults),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, []columnAlignment{alignRight}))
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return units.FormatTime(*t)
}

func formatResults(results map[string]picks.TestResult) string {
	if len(results) == 0 {
		return "-"
	}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		mark := "fail"
		if results[name].Passed {
			mark = "ok"
		}
		parts[i] = name + "=" + mark
	}
	return strings.Join(parts, " ")
}
