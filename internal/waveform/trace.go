package waveform

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/onset.picker/internal/units"
)

// ErrBadInput reports a missing, malformed or degenerate waveform segment.
var ErrBadInput = errors.New("bad input")

// MinSamples is the shortest segment Trim and Slice will return.
const MinSamples = 2

// Trace is one channel of evenly sampled data.
type Trace struct {
	Network  string
	Station  string
	Location string
	Channel  string

	Start        time.Time
	SamplingRate float64 // Hz
	Samples      []float64
}

// Validate checks that t can be used as a waveform segment.
func (t *Trace) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil trace", ErrBadInput)
	}
	if t.SamplingRate <= 0 {
		return fmt.Errorf("%w: sampling rate must be positive, got %g", ErrBadInput, t.SamplingRate)
	}
	if len(t.Samples) == 0 {
		return fmt.Errorf("%w: trace %s has no samples", ErrBadInput, t.ID())
	}
	return nil
}

// ID returns the SEED style identifier NET.STA.LOC.CHA.
func (t *Trace) ID() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s.%s.%s.%s", t.Network, t.Station, t.Location, t.Channel)
}

// Len returns the number of samples.
func (t *Trace) Len() int { return len(t.Samples) }

// TimeAt returns the absolute time of sample i.
func (t *Trace) TimeAt(i int) time.Time {
	return units.OffsetTime(t.Start, float64(i), t.SamplingRate)
}

// End returns the time of the last sample.
func (t *Trace) End() time.Time {
	if len(t.Samples) == 0 {
		return t.Start
	}
	return t.TimeAt(len(t.Samples) - 1)
}

// IndexAt returns the nearest sample index to ts. It is not clamped.
func (t *Trace) IndexAt(ts time.Time) int {
	return units.IndexAt(t.Start, ts, t.SamplingRate)
}

// Copy returns a deep copy of t.
func (t *Trace) Copy() *Trace {
	if t == nil {
		return nil
	}
	out := *t
	out.Samples = make([]float64, len(t.Samples))
	copy(out.Samples, t.Samples)
	return &out
}

// Trim returns a copy of t restricted to the samples nearest to
// [start, end], clamped to the trace bounds.
func (t *Trace) Trim(start, end time.Time) (*Trace, error) {
	view, err := t.Slice(start, end)
	if err != nil {
		return nil, err
	}
	return view.Copy(), nil
}

// Slice returns a view of t restricted to [start, end]. The returned trace
// shares t's sample array.
func (t *Trace) Slice(start, end time.Time) (*Trace, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	lo, hi, err := t.bounds(start, end)
	if err != nil {
		return nil, err
	}
	out := *t
	out.Start = t.TimeAt(lo)
	out.Samples = t.Samples[lo : hi+1 : hi+1]
	return &out, nil
}

// bounds converts a time window into inclusive sample indices.
func (t *Trace) bounds(start, end time.Time) (int, int, error) {
	if end.Before(start) {
		return 0, 0, fmt.Errorf("%w: window end %s before start %s", ErrBadInput,
			units.FormatTime(end), units.FormatTime(start))
	}
	lo := t.IndexAt(start)
	hi := t.IndexAt(end)
	if lo < 0 {
		lo = 0
	}
	if hi > len(t.Samples)-1 {
		hi = len(t.Samples) - 1
	}
	if hi-lo+1 < MinSamples {
		return 0, 0, fmt.Errorf("%w: window %s - %s leaves %d samples of %s",
			ErrBadInput, units.FormatTime(start), units.FormatTime(end), max(hi-lo+1, 0), t.ID())
	}
	return lo, hi, nil
}
