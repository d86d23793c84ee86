package refine

import (
	"fmt"
	"time"

	"github.com/banshee-data/onset.picker/internal/units"
	"github.com/banshee-data/onset.picker/internal/waveform"
)

// Config selects the refinement window and waveform variant.
type Config struct {
	// UseRaw draws the window from the raw variant when one is available;
	// raw data can show transients that filtering suppresses.
	UseRaw bool
	// NoiseWindow and SignalWindow are the seconds kept before and after
	// the primary pick.
	NoiseWindow  float64
	SignalWindow float64
}

// Validate checks the window lengths.
func (c Config) Validate() error {
	if c.NoiseWindow < 0 || c.SignalWindow < 0 || c.NoiseWindow+c.SignalWindow <= 0 {
		return fmt.Errorf("%w: refinement windows must be non-negative and not both zero (noise=%g signal=%g)",
			waveform.ErrBadInput, c.NoiseWindow, c.SignalWindow)
	}
	return nil
}

// Result is a refined onset.
type Result struct {
	Time       time.Time
	Index      int // sample index of Time within the slice
	SliceStart time.Time
	Variant    string
	Curve      []float64
}

// Refiner computes AIC refinements for accepted picks.
type Refiner struct {
	cfg Config
}

// New returns a Refiner for cfg.
func New(cfg Config) *Refiner {
	return &Refiner{cfg: cfg}
}

// Config returns the refiner configuration.
func (r *Refiner) Config() Config { return r.cfg }

// Variant names the waveform variant Refine will read from v. Without a
// raw variant it falls back to the processed one.
func (r *Refiner) Variant(v *waveform.Variants) string {
	if r.cfg.UseRaw && v.Has(waveform.Raw) {
		return waveform.Raw
	}
	return waveform.Processed
}

// Refine refines pick on the given channel of v.
func (r *Refiner) Refine(v *waveform.Variants, channel string, pick time.Time) (Result, error) {
	variant := r.Variant(v)
	tr, err := v.Trace(variant, channel)
	if err != nil {
		return Result{}, fmt.Errorf("refinement trace: %w", err)
	}
	res, err := r.RefineTrace(tr, pick)
	if err != nil {
		return Result{}, err
	}
	res.Variant = variant
	return res, nil
}

// RefineTrace refines pick on tr directly.
func (r *Refiner) RefineTrace(tr *waveform.Trace, pick time.Time) (Result, error) {
	if err := tr.Validate(); err != nil {
		return Result{}, err
	}
	window, err := tr.Slice(
		pick.Add(-units.SecondsToDuration(r.cfg.NoiseWindow)),
		pick.Add(units.SecondsToDuration(r.cfg.SignalWindow)),
	)
	if err != nil {
		return Result{}, fmt.Errorf("refinement window: %w", err)
	}

	k, curve, err := AIC(window.Samples)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Time:       window.TimeAt(k),
		Index:      k,
		SliceStart: window.Start,
		Curve:      curve,
	}, nil
}
