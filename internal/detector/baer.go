package detector

import (
	"math"
)

// BaerKradolfer is a characteristic-function onset picker in the style of
// Baer & Kradolfer (1987). The envelope y² + C·ẏ² is raised to the fourth
// power and normalised by running noise statistics. A trigger fires when
// the normalised function exceeds AmplitudeThreshold; statistics are only
// updated while it stays below UpdateThreshold. The trigger becomes a pick
// once it survives EventWindow samples without dropping out for more than
// PreEventWindow consecutive samples.
type BaerKradolfer struct{}

// Detect implements Detector. Tags look like "IPU0": onset (I impulsive,
// E emergent), phase P, first motion (U, D or ?), quality 0 (best) to 4.
func (BaerKradolfer) Detect(samples []float64, rate float64, p Params) (int, string) {
	n := len(samples)
	preset := p.PresetWindow
	if preset < 2 || preset >= n || rate <= 0 {
		return 0, ""
	}

	var sumSq, sumDiffSq float64
	for i := 1; i <= preset; i++ {
		d := (samples[i] - samples[i-1]) * rate
		sumSq += samples[i] * samples[i]
		sumDiffSq += d * d
	}
	omega := 1.0
	if sumDiffSq > 0 {
		omega = sumSq / sumDiffSq
	}

	cf := func(i int) float64 {
		d := (samples[i] - samples[i-1]) * rate
		e := samples[i]*samples[i] + omega*d*d
		return e * e
	}

	var s1, s2 float64
	count := 0
	for i := 1; i <= preset; i++ {
		e := cf(i)
		s1 += e
		s2 += e * e
		count++
	}

	normalise := func(e float64) float64 {
		mean := s1 / float64(count)
		variance := s2/float64(count) - mean*mean
		if variance <= 0 {
			if e > mean {
				return math.Inf(1)
			}
			return 0
		}
		return (e - mean) / math.Sqrt(variance)
	}

	triggered := false
	trigger, below := 0, 0
	for i := preset + 1; i < n; i++ {
		e := cf(i)
		y := normalise(e)

		if !triggered {
			if y > p.AmplitudeThreshold {
				triggered = true
				trigger = i
				below = 0
			}
		} else {
			if y > p.AmplitudeThreshold {
				below = 0
			} else {
				below++
				if below > p.PreEventWindow {
					triggered = false
				}
			}
			if triggered && i-trigger >= p.EventWindow {
				return trigger, classify(samples, trigger, p, normalise, cf)
			}
		}

		if !triggered && y < p.UpdateThreshold {
			s1 += e
			s2 += e * e
			count++
		}
	}

	// A trigger still open at the end of the trace counts when it lasted
	// long enough to be observed at all.
	if triggered && n-trigger >= p.EventWindow {
		return trigger, classify(samples, trigger, p, normalise, cf)
	}
	return 0, ""
}

func classify(samples []float64, trigger int, p Params,
	normalise func(float64) float64, cf func(int) float64) string {
	onset := byte('E')
	peak := 0.0
	end := trigger + max(p.PostEventDuration, 1)
	if end > len(samples) {
		end = len(samples)
	}
	for i := trigger; i < end; i++ {
		y := normalise(cf(i))
		if y > peak {
			peak = y
		}
		if i-trigger < 3 && y >= 4*p.AmplitudeThreshold {
			onset = 'I'
		}
	}

	polarity := byte('?')
	switch d := samples[trigger] - samples[trigger-1]; {
	case d > 0:
		polarity = 'U'
	case d < 0:
		polarity = 'D'
	}

	ratio := peak / p.AmplitudeThreshold
	quality := byte('4')
	switch {
	case ratio >= 16:
		quality = '0'
	case ratio >= 8:
		quality = '1'
	case ratio >= 4:
		quality = '2'
	case ratio >= 2:
		quality = '3'
	}
	return string([]byte{onset, 'P', polarity, quality})
}
