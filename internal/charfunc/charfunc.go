// Package charfunc builds the characteristic function used for
// scale-invariant thresholding: samples are squared and rescaled into a
// target range.
package charfunc

import (
	"gonum.org/v1/gonum/floats"
)

// Rescale maps samples linearly into [lo, hi] and returns a new slice.
// A constant input maps to lo everywhere.
func Rescale(samples []float64, lo, hi float64) []float64 {
	out := make([]float64, len(samples))
	if len(samples) == 0 {
		return out
	}
	minVal, maxVal := floats.Min(samples), floats.Max(samples)
	span := maxVal - minVal
	if span == 0 {
		for i := range out {
			out[i] = lo
		}
		return out
	}
	scale := (hi - lo) / span
	for i, v := range samples {
		out[i] = (v-minVal)*scale + lo
	}
	return out
}

// Square returns the element-wise square of samples.
func Square(samples []float64) []float64 {
	out := make([]float64, len(samples))
	floats.MulTo(out, samples, samples)
	return out
}

// Compute returns the characteristic function of samples rescaled to [0, 1].
func Compute(samples []float64) []float64 {
	return ComputeRange(samples, 0, 1)
}

// ComputeRange returns the characteristic function rescaled to [lo, hi].
func ComputeRange(samples []float64, lo, hi float64) []float64 {
	return Rescale(Square(samples), lo, hi)
}
