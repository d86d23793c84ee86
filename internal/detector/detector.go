// Package detector adapts a primary, low-precision onset detector to the
// picker. The detector itself is opaque: it receives samples, a sampling
// rate and thresholds in sample units, and answers with a sample index and
// a short classification tag. An empty tag means no pick.
package detector

import (
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/onset.picker/internal/units"
	"github.com/banshee-data/onset.picker/internal/waveform"
)

// Profile holds detector parameters as supplied by the user, with every
// window expressed in seconds.
type Profile struct {
	PreEventWindow     float64 `json:"pre_event_window" yaml:"pre_event_window" toml:"pre_event_window"`
	EventWindow        float64 `json:"event_window" yaml:"event_window" toml:"event_window"`
	AmplitudeThreshold float64 `json:"amplitude_threshold" yaml:"amplitude_threshold" toml:"amplitude_threshold"`
	UpdateThreshold    float64 `json:"update_threshold" yaml:"update_threshold" toml:"update_threshold"`
	PresetWindow       float64 `json:"preset_window" yaml:"preset_window" toml:"preset_window"`
	PostEventDuration  float64 `json:"post_event_duration" yaml:"post_event_duration" toml:"post_event_duration"`
}

// Validate checks that the profile can drive a detector.
func (p Profile) Validate() error {
	if p.PreEventWindow < 0 || p.EventWindow <= 0 || p.PresetWindow <= 0 || p.PostEventDuration < 0 {
		return fmt.Errorf("%w: detector windows must be positive (pre=%g event=%g preset=%g post=%g)",
			waveform.ErrBadInput, p.PreEventWindow, p.EventWindow, p.PresetWindow, p.PostEventDuration)
	}
	if p.AmplitudeThreshold <= 0 || p.UpdateThreshold <= 0 {
		return fmt.Errorf("%w: detector thresholds must be positive (thr1=%g thr2=%g)",
			waveform.ErrBadInput, p.AmplitudeThreshold, p.UpdateThreshold)
	}
	return nil
}

// Params are detector parameters with windows converted to sample counts.
type Params struct {
	PreEventWindow     int // tdownmax
	EventWindow        int // tupevent
	AmplitudeThreshold float64
	UpdateThreshold    float64
	PresetWindow       int
	PostEventDuration  int
}

// ToParams converts p to sample units at rate.
func (p Profile) ToParams(rate float64) Params {
	return Params{
		PreEventWindow:     units.SecondsToSamples(p.PreEventWindow, rate),
		EventWindow:        units.SecondsToSamples(p.EventWindow, rate),
		AmplitudeThreshold: p.AmplitudeThreshold,
		UpdateThreshold:    p.UpdateThreshold,
		PresetWindow:       units.SecondsToSamples(p.PresetWindow, rate),
		PostEventDuration:  units.SecondsToSamples(p.PostEventDuration, rate),
	}
}

// Detector finds at most one onset in samples.
type Detector interface {
	Detect(samples []float64, rate float64, p Params) (index int, tag string)
}

// Func adapts an ordinary function to the Detector interface.
type Func func(samples []float64, rate float64, p Params) (int, string)

// Detect calls f.
func (f Func) Detect(samples []float64, rate float64, p Params) (int, string) {
	return f(samples, rate, p)
}

// Candidate is a primary pick located on a segment.
type Candidate struct {
	Index int
	Tag   string
	Time  time.Time
}

// Locate runs det over seg with profile converted at the segment's rate.
// The boolean is false when the detector reports no pick.
func Locate(seg *waveform.Trace, det Detector, profile Profile) (Candidate, bool, error) {
	if err := seg.Validate(); err != nil {
		return Candidate{}, false, err
	}
	if det == nil {
		return Candidate{}, false, fmt.Errorf("%w: no detector configured", waveform.ErrBadInput)
	}

	idx, tag := det.Detect(seg.Samples, seg.SamplingRate, profile.ToParams(seg.SamplingRate))
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Candidate{}, false, nil
	}
	if idx < 0 || idx >= seg.Len() {
		return Candidate{}, false, fmt.Errorf("%w: detector returned index %d outside %d samples",
			waveform.ErrBadInput, idx, seg.Len())
	}
	return Candidate{
		Index: idx,
		Tag:   tag,
		Time:  units.OffsetTime(seg.Start, float64(idx), seg.SamplingRate),
	}, true, nil
}
