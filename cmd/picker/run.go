package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/onset.picker/internal/config"
	"github.com/banshee-data/onset.picker/internal/db"
	"github.com/banshee-data/onset.picker/internal/diagplot"
	"github.com/banshee-data/onset.picker/internal/picker"
	"github.com/banshee-data/onset.picker/internal/query"
	"github.com/banshee-data/onset.picker/internal/version"
	"github.com/banshee-data/onset.picker/internal/waveform"
)

type runOptions struct {
	tracePath  string
	rawPath    string
	configPath string
	channel    string
	plotPath   string
	htmlPath   string
	timeout    time.Duration
	query      queryFlags
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Pick onsets on one channel of a waveform file",
		Long: `Run the iterative picker on a processed waveform file and print the
accepted picks. With --db the run and every iteration record are stored.`,
		Example: `  picker run --trace event.json
  picker run --trace event.json --raw event.raw.json --source primary,refined --format verbose
  picker run --trace event.json --config picker.yaml --db picks.db --plot picks.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPicker(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.tracePath, "trace", "", "processed waveform JSON file")
	cmd.Flags().StringVar(&opts.rawPath, "raw", "", "raw waveform JSON file used for refinement")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "picker config (.json, .yaml or .toml)")
	cmd.Flags().StringVar(&opts.channel, "channel", "", "channel pattern, overrides the config")
	cmd.Flags().StringVar(&opts.plotPath, "plot", "", "write a PNG of the trace and picks")
	cmd.Flags().StringVar(&opts.htmlPath, "html", "", "write an HTML chart of the AIC curves")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "abort the run after this long")
	opts.query.register(cmd)
	_ = cmd.MarkFlagRequired("trace")

	return cmd
}

func runPicker(cmd *cobra.Command, rootOpts *RootOptions, opts *runOptions) error {
	cfg := config.DefaultPickerConfig()
	if opts.configPath != "" {
		loaded, err := config.LoadPickerConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.channel != "" {
		cfg.Channel = &opts.channel
	}
	if !cfg.GetRefinementEnabled() && !cmd.Flags().Changed("source") {
		opts.query.sources = []string{string(query.Primary)}
	}

	processed, err := waveform.LoadJSON(opts.tracePath)
	if err != nil {
		return err
	}
	variants := waveform.NewVariants(processed)
	if opts.rawPath != "" {
		raw, err := waveform.LoadJSON(opts.rawPath)
		if err != nil {
			return err
		}
		variants.Add(waveform.Raw, raw)
	}

	logf := rootOpts.logger(cmd.ErrOrStderr())
	c, err := picker.New(cfg.ToPickerConfig(), picker.WithLogger(logf))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	runErr := c.Run(ctx, variants)
	if runErr != nil && !errors.Is(runErr, picker.ErrNoValidPick) {
		return runErr
	}

	trace, err := variants.Trace(waveform.Processed, c.Config().Channel)
	if err != nil {
		return err
	}

	if rootOpts.DBPath != "" {
		if err := storeRun(cmd, rootOpts, cfg, c, trace.ID()); err != nil {
			return err
		}
	}
	if opts.plotPath != "" {
		if err := writeFile(opts.plotPath, func(f *os.File) error {
			return diagplot.RenderPNG(f, trace, c.Records(), trace.ID())
		}); err != nil {
			return err
		}
	}
	if opts.htmlPath != "" {
		if err := writeFile(opts.htmlPath, func(f *os.File) error {
			return diagplot.RenderAICHTML(f, c.Records(), trace.SamplingRate, trace.ID())
		}); err != nil {
			return err
		}
	}

	items, err := opts.query.extract(c.Query())
	if err != nil {
		return err
	}
	if err := writeItems(cmd, rootOpts, items, opts.query); err != nil {
		return err
	}
	return runErr
}

func storeRun(cmd *cobra.Command, rootOpts *RootOptions, cfg *config.PickerConfig, c *picker.Controller, traceID string) error {
	database, err := rootOpts.openDB(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	stats := c.Stats()
	run := &db.Run{
		Channel:       c.Config().Channel,
		TraceID:       traceID,
		StartedAt:     stats.StartedAt,
		Elapsed:       stats.Elapsed,
		MaxIterations: c.Config().MaxIterations,
		AcceptedCount: stats.Accepted,
		ConfigJSON:    cfgJSON,
		Version:       version.Version,
	}
	id, err := db.NewRunStore(database).Insert(run, c.Records())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "stored run %s\n", id)
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
