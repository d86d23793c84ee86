// Package picker runs the iterative onset picker: detect a primary
// candidate, validate it, optionally refine it, record the round, then
// search again on the remaining tail of the trace.
package picker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/onset.picker/internal/detector"
	"github.com/banshee-data/onset.picker/internal/monitoring"
	"github.com/banshee-data/onset.picker/internal/picks"
	"github.com/banshee-data/onset.picker/internal/query"
	"github.com/banshee-data/onset.picker/internal/refine"
	"github.com/banshee-data/onset.picker/internal/timeutil"
	"github.com/banshee-data/onset.picker/internal/units"
	"github.com/banshee-data/onset.picker/internal/validation"
	"github.com/banshee-data/onset.picker/internal/waveform"
)

// ErrNoValidPick is returned when a complete run accepted no pick.
var ErrNoValidPick = errors.New("no valid pick")

// RunStats summarises the last run.
type RunStats struct {
	Rounds    int
	Accepted  int
	StartedAt time.Time
	Elapsed   time.Duration
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the diagnostic logger.
func WithLogger(l monitoring.Logger) Option {
	return func(c *Controller) { c.logf = monitoring.OrNop(l) }
}

// WithDetector replaces the default Baer-Kradolfer detector.
func WithDetector(d detector.Detector) Option {
	return func(c *Controller) { c.det = d }
}

// WithRegistry resolves test names against reg instead of
// validation.DefaultRegistry.
func WithRegistry(reg *validation.Registry) Option {
	return func(c *Controller) { c.tests = reg }
}

// WithClock sets the clock used for run statistics.
func WithClock(clk timeutil.Clock) Option {
	return func(c *Controller) { c.clock = timeutil.OrReal(clk) }
}

// Controller owns one channel's picker state. It is not safe for
// concurrent use; independent Controllers share nothing.
type Controller struct {
	cfg      Config
	det      detector.Detector
	tests    *validation.Registry
	pipeline *validation.Pipeline
	refiner  *refine.Refiner
	records  *picks.Registry
	logf     monitoring.Logger
	clock    timeutil.Clock
	stats    RunStats
}

// New validates cfg and resolves every configured test before any round
// can run.
func New(cfg Config, opts ...Option) (*Controller, error) {
	c := &Controller{
		cfg:   cfg,
		det:   detector.BaerKradolfer{},
		logf:  monitoring.Nop,
		clock: timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c.det == nil {
		return nil, fmt.Errorf("%w: nil detector", waveform.ErrBadInput)
	}
	if c.tests == nil {
		c.tests = validation.DefaultRegistry()
	}
	p, err := validation.NewPipeline(c.tests, cfg.Tests)
	if err != nil {
		return nil, err
	}
	c.pipeline = p
	c.refiner = refine.New(cfg.Refinement)
	c.records = picks.New(cfg.MaxIterations)
	return c, nil
}

// Config returns the controller configuration.
func (c *Controller) Config() Config { return c.cfg }

// TestNames returns the configured tests in execution order.
func (c *Controller) TestNames() []string { return c.pipeline.Names() }

// Run executes up to MaxIterations rounds on the configured channel of
// v. Any previous results are discarded first. It returns ErrNoValidPick
// when every round was rejected; the records remain queryable either way.
func (c *Controller) Run(ctx context.Context, v *waveform.Variants) error {
	c.records.Reset()
	c.stats = RunStats{StartedAt: c.clock.Now()}
	defer func() { c.stats.Elapsed = c.clock.Since(c.stats.StartedAt) }()

	trace, err := v.Trace(waveform.Processed, c.cfg.Channel)
	if err != nil {
		return fmt.Errorf("select channel %q: %w", c.cfg.Channel, err)
	}
	c.logf("picker: %s, %d samples at %g Hz, up to %d rounds, tests %v",
		trace.ID(), trace.Len(), trace.SamplingRate, c.cfg.MaxIterations, c.pipeline.Names())

	seg := trace
	for round := 1; round <= c.cfg.MaxIterations; round++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("picker stopped before round %d: %w", round, err)
		}
		profile := c.cfg.Main
		if round > 1 {
			profile = c.cfg.Aux
		}

		more, next, err := c.round(round, trace, seg, profile, v)
		c.stats.Rounds = round
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		if !more {
			break
		}
		if round < c.cfg.MaxIterations {
			seg, err = trace.Trim(next, trace.End())
			if err != nil {
				return fmt.Errorf("round %d: trim after %s: %w", round+1, units.FormatTime(next), err)
			}
		}
	}

	if c.stats.Accepted == 0 {
		c.logf("picker: no pick accepted in %d rounds", c.stats.Rounds)
		return fmt.Errorf("%w: %d rounds on %s", ErrNoValidPick, c.stats.Rounds, trace.ID())
	}
	return nil
}

// round runs one detect/validate/refine cycle on seg. It reports whether
// a candidate was found and, if so, its time.
func (c *Controller) round(n int, trace, seg *waveform.Trace, profile detector.Profile,
	v *waveform.Variants) (bool, time.Time, error) {
	cand, ok, err := detector.Locate(seg, c.det, profile)
	if err != nil {
		return false, time.Time{}, err
	}
	if !ok {
		c.logf("round %d: no candidate after %s", n, units.FormatTime(seg.Start))
		return false, time.Time{}, c.records.Store(n, picks.Fields{picks.FieldIteration: n})
	}
	c.logf("round %d: candidate %s %s", n, units.FormatTime(cand.Time), cand.Tag)
	if err := c.records.Store(n, picks.Fields{
		picks.FieldPrimaryTime: cand.Time,
		picks.FieldPrimaryTag:  cand.Tag,
	}); err != nil {
		return false, time.Time{}, err
	}

	rec, _ := c.records.Get(n)
	accepted, details, err := c.pipeline.Evaluate(rec, trace)
	if err != nil {
		return false, time.Time{}, err
	}
	if err := c.records.Store(n, picks.Fields{
		picks.FieldAccepted:    accepted,
		picks.FieldTestResults: details,
	}); err != nil {
		return false, time.Time{}, err
	}
	c.logDetails(n, accepted, details)
	if !accepted {
		return true, cand.Time, nil
	}
	c.stats.Accepted++

	if c.cfg.Refine {
		res, err := c.refiner.Refine(v, c.cfg.Channel, cand.Time)
		if err != nil {
			return false, time.Time{}, err
		}
		if err := c.records.Store(n, picks.Fields{
			picks.FieldRefinedTime:     res.Time,
			picks.FieldRefinementCurve: res.Curve,
		}); err != nil {
			return false, time.Time{}, err
		}
		c.logf("round %d: refined on %s to %s (%+.3fs)", n, res.Variant,
			units.FormatTime(res.Time), res.Time.Sub(cand.Time).Seconds())
	}
	return true, cand.Time, nil
}

func (c *Controller) logDetails(n int, accepted bool, details map[string]picks.TestResult) {
	verdict := "Rejected"
	if accepted {
		verdict = "Accepted"
	}
	c.logf("round %d: Pick: %s", n, verdict)
	names := make([]string, 0, len(details))
	for name := range details {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := details[name]
		c.logf("round %d:   %s passed=%t values=%v", n, name, r.Passed, r.Values)
	}
}

// Records returns copies of every record of the last run.
func (c *Controller) Records() []picks.Record { return c.records.All() }

// Registry exposes the pick registry of the last run.
func (c *Controller) Registry() *picks.Registry { return c.records }

// Query returns an engine over the last run's records.
func (c *Controller) Query() *query.Engine { return query.New(c.records) }

// Stats returns statistics for the last run.
func (c *Controller) Stats() RunStats { return c.stats }
