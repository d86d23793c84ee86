package waveform

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2009, 8, 24, 0, 20, 3, 0, time.UTC)

func ramp(n int) *Trace {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(i)
	}
	return &Trace{Network: "BW", Station: "RJOB", Channel: "EHZ", Start: t0, SamplingRate: 100, Samples: s}
}

func TestTraceValidate(t *testing.T) {
	t.Parallel()

	var nilTrace *Trace
	assert.ErrorIs(t, nilTrace.Validate(), ErrBadInput)
	assert.ErrorIs(t, (&Trace{SamplingRate: 0, Samples: []float64{1}}).Validate(), ErrBadInput)
	assert.ErrorIs(t, (&Trace{SamplingRate: 100}).Validate(), ErrBadInput)
	assert.NoError(t, ramp(3).Validate())
}

func TestTraceTimes(t *testing.T) {
	t.Parallel()

	tr := ramp(101)
	assert.Equal(t, "BW.RJOB..EHZ", tr.ID())
	assert.True(t, tr.End().Equal(t0.Add(time.Second)))
	assert.Equal(t, 50, tr.IndexAt(t0.Add(500*time.Millisecond)))
}

func TestTraceTrimCopies(t *testing.T) {
	t.Parallel()

	tr := ramp(1000)
	trimmed, err := tr.Trim(t0.Add(2*time.Second), t0.Add(3*time.Second))
	require.NoError(t, err)

	assert.Equal(t, 101, trimmed.Len())
	assert.Equal(t, 200.0, trimmed.Samples[0])
	assert.True(t, trimmed.Start.Equal(t0.Add(2*time.Second)))

	trimmed.Samples[0] = -1
	assert.Equal(t, 200.0, tr.Samples[200], "trim must not alias the parent")
}

func TestTraceSliceSharesAndClamps(t *testing.T) {
	t.Parallel()

	tr := ramp(100)
	view, err := tr.Slice(t0.Add(-time.Second), t0.Add(10*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 100, view.Len())
	assert.True(t, view.Start.Equal(t0))

	view, err = tr.Slice(t0.Add(500*time.Millisecond), tr.End())
	require.NoError(t, err)
	assert.Equal(t, 50, view.Len())
	assert.Equal(t, 50.0, view.Samples[0])
}

func TestTraceDegenerateWindows(t *testing.T) {
	t.Parallel()

	tr := ramp(100)
	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"reversed", t0.Add(time.Second), t0},
		{"after end", t0.Add(5 * time.Second), t0.Add(6 * time.Second)},
		{"single sample", tr.End(), tr.End().Add(time.Second)},
		{"before start", t0.Add(-2 * time.Second), t0.Add(-time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Trim(tt.start, tt.end)
			assert.True(t, errors.Is(err, ErrBadInput), "got %v", err)
		})
	}
}

func TestStreamSelect(t *testing.T) {
	t.Parallel()

	z := ramp(10)
	n := ramp(10)
	n.Channel = "EHN"
	s := Stream{z, n}

	got, err := s.Select("*Z")
	require.NoError(t, err)
	assert.Same(t, z, got)

	_, err = s.Select("EH?")
	assert.ErrorIs(t, err, ErrBadInput)

	_, err = s.Select("*E")
	assert.ErrorIs(t, err, ErrBadInput)

	_, err = s.Select("[")
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestVariantsReturnFreshCopies(t *testing.T) {
	t.Parallel()

	proc := ramp(10)
	raw := ramp(10)
	raw.Samples[0] = 42
	v := NewVariants(Stream{proc}).Add(Raw, Stream{raw})

	assert.True(t, v.Has(Processed))
	assert.True(t, v.Has(Raw))
	assert.False(t, v.Has("velocity"))
	assert.Equal(t, []string{Processed, Raw}, v.Names())

	a, err := v.Trace(Processed, "*Z")
	require.NoError(t, err)
	b, err := v.Trace(Processed, "*Z")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	a.Samples[1] = 99
	assert.Equal(t, 1.0, b.Samples[1])
	assert.Equal(t, 1.0, proc.Samples[1])

	r, err := v.Trace(Raw, "*Z")
	require.NoError(t, err)
	assert.Equal(t, 42.0, r.Samples[0])

	_, err = v.Trace("velocity", "*Z")
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Stream{ramp(5)}))

	s, err := ReadJSON(&buf)
	require.NoError(t, err)
	require.Len(t, s, 1)
	assert.Equal(t, "EHZ", s[0].Channel)
	assert.True(t, s[0].Start.Equal(t0))
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, s[0].Samples)
}

func TestReadJSONSingleTrace(t *testing.T) {
	t.Parallel()

	in := `{"channel":"HHZ","start":"2020-01-01T00:00:00Z","sampling_rate":50,"samples":[1,2,3]}`
	s, err := ReadJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, s, 1)
	assert.Equal(t, 50.0, s[0].SamplingRate)

	_, err = ReadJSON(strings.NewReader(`{"channel":"HHZ","sampling_rate":0,"samples":[1]}`))
	assert.ErrorIs(t, err, ErrBadInput)

	_, err = ReadJSON(strings.NewReader(`not json`))
	assert.ErrorIs(t, err, ErrBadInput)
}
