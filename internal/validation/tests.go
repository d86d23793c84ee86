package validation

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/onset.picker/internal/charfunc"
	"github.com/banshee-data/onset.picker/internal/picks"
	"github.com/banshee-data/onset.picker/internal/units"
	"github.com/banshee-data/onset.picker/internal/waveform"
)

// DefaultTrendConfidence is used by TrendTest when no confidence is given.
const DefaultTrendConfidence = 0.95

// AmplitudeTest rejects the pick when the maximum of the characteristic
// function over [pick, pick+window] is at most min_amp.
// Params: window (s), min_amp (0..1).
func AmplitudeTest(seg *waveform.Trace, rec picks.Record, params []float64) (picks.TestResult, error) {
	if err := needParams("AmplitudeTest", params, 2, 2); err != nil {
		return picks.TestResult{}, err
	}
	window, minAmp := params[0], params[1]
	pick, err := pickTime(rec)
	if err != nil {
		return picks.TestResult{}, err
	}

	seg.Samples = charfunc.Compute(seg.Samples)
	post, err := seg.Slice(pick, pick.Add(units.SecondsToDuration(window)))
	if err != nil {
		return picks.TestResult{}, err
	}

	peak := floats.Max(post.Samples)
	return picks.TestResult{Passed: peak > minAmp, Values: []float64{peak}}, nil
}

// SustainTest compares the mean characteristic function of n_windows
// consecutive windows after the pick with the mean over the window before
// it, and rejects the pick when any ratio is at most min_ratio.
// Params: window (s), n_windows, min_ratio.
func SustainTest(seg *waveform.Trace, rec picks.Record, params []float64) (picks.TestResult, error) {
	if err := needParams("SustainTest", params, 3, 3); err != nil {
		return picks.TestResult{}, err
	}
	window, minRatio := params[0], params[2]
	count := int(params[1])
	if float64(count) != params[1] || count < 1 {
		return picks.TestResult{}, fmt.Errorf("%w: SustainTest n_windows must be a positive integer, got %g",
			waveform.ErrBadInput, params[1])
	}
	pick, err := pickTime(rec)
	if err != nil {
		return picks.TestResult{}, err
	}

	seg.Samples = charfunc.Compute(seg.Samples)
	width := units.SecondsToDuration(window)

	noise, err := seg.Slice(pick.Add(-width), pick)
	if err != nil {
		return picks.TestResult{}, fmt.Errorf("noise window: %w", err)
	}
	noiseMean := stat.Mean(noise.Samples, nil)

	passed := true
	ratios := make([]float64, 0, count)
	for k := 0; k < count; k++ {
		from := pick.Add(time.Duration(k) * width)
		sig, err := seg.Slice(from, from.Add(width))
		if err != nil {
			return picks.TestResult{}, fmt.Errorf("signal window %d: %w", k, err)
		}
		ratio := meanRatio(stat.Mean(sig.Samples, nil), noiseMean)
		ratios = append(ratios, ratio)
		if ratio <= minRatio {
			passed = false
		}
	}
	return picks.TestResult{Passed: passed, Values: ratios}, nil
}

// TrendTest inspects the sign of the first difference of the raw samples
// over [pick, pick+window]. When the fraction of positive or of negative
// differences reaches confidence the pick is rejected as a monotonic
// filter ramp rather than an onset.
// Params: window (s), optional confidence (default 0.95).
func TrendTest(seg *waveform.Trace, rec picks.Record, params []float64) (picks.TestResult, error) {
	if err := needParams("TrendTest", params, 1, 2); err != nil {
		return picks.TestResult{}, err
	}
	window := params[0]
	confidence := DefaultTrendConfidence
	if len(params) > 1 {
		confidence = params[1]
	}
	pick, err := pickTime(rec)
	if err != nil {
		return picks.TestResult{}, err
	}

	post, err := seg.Slice(pick, pick.Add(units.SecondsToDuration(window)))
	if err != nil {
		return picks.TestResult{}, err
	}

	var pos, neg int
	for i := 1; i < post.Len(); i++ {
		switch d := post.Samples[i] - post.Samples[i-1]; {
		case d > 0:
			pos++
		case d < 0:
			neg++
		}
	}
	total := float64(post.Len() - 1)
	posFrac, negFrac := float64(pos)/total, float64(neg)/total

	passed := posFrac < confidence && negFrac < confidence
	return picks.TestResult{Passed: passed, Values: []float64{posFrac, negFrac, confidence}}, nil
}

func needParams(name string, params []float64, lo, hi int) error {
	if len(params) < lo || len(params) > hi {
		return fmt.Errorf("%w: %s expects %d to %d parameters, got %d", waveform.ErrBadInput, name, lo, hi, len(params))
	}
	return nil
}

func pickTime(rec picks.Record) (time.Time, error) {
	if rec.PrimaryTime == nil {
		return time.Time{}, fmt.Errorf("%w: iteration %d has no primary pick", waveform.ErrBadInput, rec.Iteration)
	}
	return *rec.PrimaryTime, nil
}

// meanRatio divides a signal mean by a noise mean. A silent noise window
// yields MaxFloat64 for any positive signal so results stay JSON-safe.
func meanRatio(signal, noise float64) float64 {
	if noise == 0 {
		if signal > 0 {
			return math.MaxFloat64
		}
		return 0
	}
	return signal / noise
}
