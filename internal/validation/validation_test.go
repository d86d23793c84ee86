package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/onset.picker/internal/picks"
	"github.com/banshee-data/onset.picker/internal/testutil"
	"github.com/banshee-data/onset.picker/internal/waveform"
)

func recordAt(sec float64) picks.Record {
	ts := testutil.At(sec)
	return picks.Record{Iteration: 1, PrimaryTime: &ts, PrimaryTag: "IPU0", TestResults: map[string]picks.TestResult{}}
}

// onsetTrace has 10 s of noise followed by a strong 5 Hz arrival.
func onsetTrace() *waveform.Trace {
	return testutil.NoiseOnset(2000, 1000, 100, 0.1, 5, 5, 11)
}

func stubRegistry(calls *[]string, verdicts map[string]bool) *Registry {
	reg := NewRegistry()
	for name, verdict := range verdicts {
		name, verdict := name, verdict
		reg.Register(&Definition{
			Name:   name,
			Params: []string{"x"},
			Run: func(seg *waveform.Trace, rec picks.Record, params []float64) (picks.TestResult, error) {
				*calls = append(*calls, name)
				return picks.TestResult{Passed: verdict}, nil
			},
		})
	}
	return reg
}

func TestPipelineNoTestsAccepts(t *testing.T) {
	t.Parallel()

	p, err := NewPipeline(DefaultRegistry(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Len())

	ok, details, err := p.Evaluate(recordAt(1), onsetTrace())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, details)
	assert.Empty(t, details)
}

func TestPipelineOrderIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	var calls []string
	reg := stubRegistry(&calls, map[string]bool{"beta": true, "Alpha": true, "gamma": true, "Delta": true})
	p, err := NewPipeline(reg, map[string][]float64{"gamma": nil, "beta": nil, "Delta": nil, "Alpha": nil})
	require.NoError(t, err)

	want := []string{"Alpha", "beta", "Delta", "gamma"}
	assert.Equal(t, want, p.Names())

	_, _, err = p.Evaluate(recordAt(1), onsetTrace())
	require.NoError(t, err)
	assert.Equal(t, want, calls)
}

func TestPipelineSingleFailureRejects(t *testing.T) {
	t.Parallel()

	var calls []string
	reg := stubRegistry(&calls, map[string]bool{"a": true, "b": false, "c": true})
	p, err := NewPipeline(reg, map[string][]float64{"a": nil, "b": nil, "c": nil})
	require.NoError(t, err)

	ok, details, err := p.Evaluate(recordAt(1), onsetTrace())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, details, 3, "every test runs even after a failure")
	assert.False(t, details["b"].Passed)
	assert.True(t, details["c"].Passed)
}

func TestPipelineMissingTestFunction(t *testing.T) {
	t.Parallel()

	_, err := NewPipeline(DefaultRegistry(), map[string][]float64{
		"AmplitudeTest": {0.5, 0.3},
		"SpectralTest":  {1},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingTestFunction))
	assert.Contains(t, err.Error(), "SpectralTest")

	_, err = NewPipeline(nil, map[string][]float64{"AmplitudeTest": {0.5, 0.3}})
	assert.ErrorIs(t, err, ErrMissingTestFunction)
}

func TestPipelineChecksArityEagerly(t *testing.T) {
	t.Parallel()

	_, err := NewPipeline(DefaultRegistry(), map[string][]float64{"SustainTest": {0.5, 3}})
	assert.ErrorIs(t, err, waveform.ErrBadInput)

	_, err = NewPipeline(DefaultRegistry(), map[string][]float64{"TrendTest": {0.5, 0.9, 1}})
	assert.ErrorIs(t, err, waveform.ErrBadInput)

	_, err = NewPipeline(DefaultRegistry(), map[string][]float64{"TrendTest": {0.5}})
	assert.NoError(t, err)
}

func TestPipelineIsolatesSegments(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	var seen []float64
	mutate := func(seg *waveform.Trace, _ picks.Record, _ []float64) (picks.TestResult, error) {
		seen = append(seen, seg.Samples[0])
		seg.Samples[0] = 1e9
		return picks.TestResult{Passed: true}, nil
	}
	reg.Register(&Definition{Name: "first", Run: mutate})
	reg.Register(&Definition{Name: "second", Run: mutate})

	p, err := NewPipeline(reg, map[string][]float64{"first": nil, "second": nil})
	require.NoError(t, err)

	seg := onsetTrace()
	orig := seg.Samples[0]
	_, _, err = p.Evaluate(recordAt(1), seg)
	require.NoError(t, err)

	assert.Equal(t, orig, seg.Samples[0], "caller's segment must not change")
	assert.Equal(t, []float64{orig, orig}, seen, "each test gets a fresh copy")
}

func TestPipelineRequiresPrimary(t *testing.T) {
	t.Parallel()

	p, err := NewPipeline(DefaultRegistry(), nil)
	require.NoError(t, err)
	_, _, err = p.Evaluate(picks.Record{Iteration: 2}, onsetTrace())
	assert.ErrorIs(t, err, waveform.ErrBadInput)

	_, _, err = p.Evaluate(recordAt(1), nil)
	assert.ErrorIs(t, err, waveform.ErrBadInput)
}

func TestAmplitudeTest(t *testing.T) {
	t.Parallel()

	res, err := AmplitudeTest(onsetTrace(), recordAt(10), []float64{0.5, 0.5})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	require.Len(t, res.Values, 1)
	assert.Greater(t, res.Values[0], 0.9)

	res, err = AmplitudeTest(onsetTrace(), recordAt(2), []float64{1, 0.5})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Less(t, res.Values[0], 0.01)

	_, err = AmplitudeTest(onsetTrace(), recordAt(25), []float64{1, 0.5})
	assert.ErrorIs(t, err, waveform.ErrBadInput, "pick beyond the trace leaves a degenerate slice")
}

func TestSustainTest(t *testing.T) {
	t.Parallel()

	res, err := SustainTest(onsetTrace(), recordAt(10), []float64{0.5, 3, 2})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Len(t, res.Values, 3)
	for _, r := range res.Values {
		assert.Greater(t, r, 100.0)
	}

	res, err = SustainTest(onsetTrace(), recordAt(4), []float64{0.5, 3, 2})
	require.NoError(t, err)
	assert.False(t, res.Passed, "noise against noise stays near ratio 1")

	_, err = SustainTest(onsetTrace(), recordAt(10), []float64{0.5, 2.5, 2})
	assert.ErrorIs(t, err, waveform.ErrBadInput)
}

func TestSustainTestSilentNoise(t *testing.T) {
	t.Parallel()

	s := make([]float64, 400)
	for i := 200; i < 400; i++ {
		s[i] = 1
	}
	res, err := SustainTest(testutil.Trace(s, 100), recordAt(2.01), []float64{0.5, 2, 1})
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestTrendTest(t *testing.T) {
	t.Parallel()

	ramp := testutil.Trace(testutil.Ramp(500, 0.01), 100)
	res, err := TrendTest(ramp, recordAt(1), []float64{1})
	require.NoError(t, err)
	assert.False(t, res.Passed, "a monotonic ramp must be rejected")
	assert.Equal(t, []float64{1, 0, DefaultTrendConfidence}, res.Values)

	down := testutil.Trace(testutil.Ramp(500, -0.01), 100)
	res, err = TrendTest(down, recordAt(1), []float64{1, 0.9})
	require.NoError(t, err)
	assert.False(t, res.Passed)

	res, err = TrendTest(onsetTrace(), recordAt(10), []float64{1})
	require.NoError(t, err)
	assert.True(t, res.Passed, "an oscillating arrival is not a trend")
}

func TestAmplitudeTestRejectsAtThreshold(t *testing.T) {
	t.Parallel()

	// The CF is x² rescaled by the global peak of 2, so the window of
	// ones sits at exactly 0.25.
	s := make([]float64, 40)
	for i := 10; i <= 20; i++ {
		s[i] = 1
	}
	s[35] = 2
	tr := testutil.Trace(s, 10)

	res, err := AmplitudeTest(tr, recordAt(1), []float64{1, 0.25})
	require.NoError(t, err)
	assert.False(t, res.Passed, "a peak equal to min_amp is rejected")
	assert.Equal(t, []float64{0.25}, res.Values)

	res, err = AmplitudeTest(testutil.Trace(s, 10), recordAt(1), []float64{1, 0.2499})
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestSustainTestRejectsOnAnyWindow(t *testing.T) {
	t.Parallel()

	// Noise at 1, a burst of 3 over the first two windows after the pick,
	// then back to 1 for the third.
	s := make([]float64, 40)
	for i := range s {
		s[i] = 1
	}
	for i := 20; i < 30; i++ {
		s[i] = 3
	}
	pick := recordAt(2)

	res, err := SustainTest(testutil.Trace(s, 10), pick, []float64{0.5, 3, 2})
	require.NoError(t, err)
	require.Len(t, res.Values, 3)
	assert.Greater(t, res.Values[0], 2.0)
	assert.Greater(t, res.Values[1], 2.0)
	assert.LessOrEqual(t, res.Values[2], 2.0)
	assert.False(t, res.Passed, "one weak window is enough to reject")

	res, err = SustainTest(testutil.Trace(s, 10), pick, []float64{0.5, 2, 2})
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestSustainTestRejectsAtThreshold(t *testing.T) {
	t.Parallel()

	// Half of the noise window and all of the signal window are at CF 1,
	// so the ratio is exactly 2.
	s := make([]float64, 40)
	for i := 18; i < 40; i++ {
		s[i] = 1
	}

	res, err := SustainTest(testutil.Trace(s, 10), recordAt(2), []float64{0.5, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, res.Values)
	assert.False(t, res.Passed, "a ratio equal to min_ratio is rejected")

	res, err = SustainTest(testutil.Trace(s, 10), recordAt(2), []float64{0.5, 1, 1.99})
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestTrendTestRejectsAtConfidence(t *testing.T) {
	t.Parallel()

	// Four rising differences out of five.
	s := make([]float64, 30)
	copy(s[10:], []float64{0, 1, 2, 3, 4, 3})
	tr := testutil.Trace(s, 10)

	res, err := TrendTest(tr, recordAt(1), []float64{0.5, 0.8})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.8, 0.2, 0.8}, res.Values)
	assert.False(t, res.Passed, "a fraction equal to confidence is rejected")

	res, err = TrendTest(testutil.Trace(s, 10), recordAt(1), []float64{0.5, 0.81})
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestDefaultRegistryList(t *testing.T) {
	t.Parallel()

	infos := DefaultRegistry().List()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	assert.Equal(t, []string{"AmplitudeTest", "LowFreqTrend", "SignalAmp", "SignalSustain", "SustainTest", "TrendTest"}, names)

	def, ok := DefaultRegistry().Get("SignalAmp")
	require.True(t, ok)
	assert.Equal(t, []string{"window", "min_amp"}, def.Params)
}
