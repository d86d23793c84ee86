// Package refine locates the onset of an accepted pick more precisely with
// an Akaike Information Criterion changepoint search over a short window
// around the pick.
package refine

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/onset.picker/internal/waveform"
)

// AIC returns the split index k minimising
//
//	AIC(k) = k·ln(var(x[0:k])) + (n-k-1)·ln(var(x[k:n]))
//
// over k in [1, n-1], together with the full curve. Variances are
// population variances and ln(0) is taken as 0 so constant sub-windows do
// not produce infinities. Ties resolve to the smallest k. curve[0] repeats
// curve[1]. Cost is O(n²).
func AIC(samples []float64) (int, []float64, error) {
	n := len(samples)
	if n < 3 {
		return 0, nil, fmt.Errorf("%w: AIC needs at least 3 samples, got %d", waveform.ErrBadInput, n)
	}
	if floats.HasNaN(samples) {
		return 0, nil, fmt.Errorf("%w: AIC input contains NaN", waveform.ErrBadInput)
	}
	for _, v := range samples {
		if math.IsInf(v, 0) {
			return 0, nil, fmt.Errorf("%w: AIC input contains Inf", waveform.ErrBadInput)
		}
	}

	curve := make([]float64, n)
	best, bestK := math.Inf(1), 1
	for k := 1; k < n; k++ {
		head := stat.PopVariance(samples[:k], nil)
		tail := stat.PopVariance(samples[k:], nil)
		v := float64(k)*lnOrZero(head) + float64(n-k-1)*lnOrZero(tail)
		curve[k] = v
		if v < best {
			best, bestK = v, k
		}
	}
	curve[0] = curve[1]
	return bestK, curve, nil
}

func lnOrZero(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log(v)
}
