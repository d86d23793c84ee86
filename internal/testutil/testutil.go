// Package testutil provides shared test utilities and fixtures.
//
// The waveform generators are deterministic for a given seed so picker,
// refinement and validation tests can assert exact sample positions.
package testutil

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/banshee-data/onset.picker/internal/waveform"
)

// Epoch is the start time used by generated traces.
var Epoch = time.Date(2009, 8, 24, 0, 20, 3, 0, time.UTC)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// At returns Epoch shifted by sec seconds.
func At(sec float64) time.Time {
	return Epoch.Add(time.Duration(math.Round(sec * float64(time.Second))))
}

// Uniform returns n samples drawn uniformly from [-amp, amp].
func Uniform(n int, amp float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amp
	}
	return out
}

// Trace wraps samples in a vertical-component trace starting at Epoch.
func Trace(samples []float64, rate float64) *waveform.Trace {
	return &waveform.Trace{
		Network:      "XX",
		Station:      "TEST",
		Channel:      "HHZ",
		Start:        Epoch,
		SamplingRate: rate,
		Samples:      samples,
	}
}

// NoiseOnset builds n samples of uniform noise with a sinusoid of
// signalAmp and freq Hz added from sample onset onwards.
func NoiseOnset(n, onset int, rate, noiseAmp, signalAmp, freq float64, seed int64) *waveform.Trace {
	s := Uniform(n, noiseAmp, seed)
	for i := onset; i < n; i++ {
		s[i] += signalAmp * math.Sin(2*math.Pi*freq*float64(i-onset)/rate)
	}
	return Trace(s, rate)
}

// VarianceStep builds n samples whose noise amplitude jumps from lowAmp to
// highAmp at sample step.
func VarianceStep(n, step int, lowAmp, highAmp float64, seed int64) []float64 {
	s := Uniform(n, 1, seed)
	for i := range s {
		if i < step {
			s[i] *= lowAmp
		} else {
			s[i] *= highAmp
		}
	}
	return s
}

// Ramp returns n samples increasing linearly by slope per sample.
func Ramp(n int, slope float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = slope * float64(i)
	}
	return out
}
