// Package units provides the conversions between seconds, sample counts
// and absolute timestamps shared by the picker stages.
package units

import (
	"math"
	"time"
)

// TimeLayout is the layout used when printing pick times. Microsecond
// precision matches the resolution of the stored sampling offsets.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// SecondsToSamples converts a user supplied window in seconds to a sample
// count at the given sampling rate. Halfway values round to the even
// neighbour so that 0.5 s at 1 Hz gives 0 and 1.5 s gives 2.
func SecondsToSamples(seconds, rate float64) int {
	return int(math.RoundToEven(seconds * rate))
}

// SecondsToDuration converts fractional seconds to a time.Duration,
// rounding to the nearest nanosecond.
func SecondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}

// OffsetTime returns the absolute time of sample index (which may be
// fractional) for a trace starting at start with the given rate.
func OffsetTime(start time.Time, index, rate float64) time.Time {
	return start.Add(SecondsToDuration(index / rate))
}

// IndexAt returns the nearest sample index of t for a trace starting at
// start. The result may be negative or beyond the trace end.
func IndexAt(start, t time.Time, rate float64) int {
	return int(math.Round(t.Sub(start).Seconds() * rate))
}

// FormatTime renders t in UTC using TimeLayout. The zero time renders as "-".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(TimeLayout)
}
