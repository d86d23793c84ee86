package diagplot

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/onset.picker/internal/picks"
	"github.com/banshee-data/onset.picker/internal/testutil"
	"github.com/banshee-data/onset.picker/internal/waveform"
)

func records(t *testing.T) []picks.Record {
	t.Helper()
	reg := picks.New(3)
	require.NoError(t, reg.Store(1, picks.Fields{
		picks.FieldPrimaryTime:     testutil.At(10.12),
		picks.FieldAccepted:        true,
		picks.FieldRefinedTime:     testutil.At(10.0),
		picks.FieldRefinementCurve: []float64{-1, -1, -4, -2, -1.5},
	}))
	require.NoError(t, reg.Store(2, picks.Fields{
		picks.FieldPrimaryTime: testutil.At(14),
		picks.FieldAccepted:    false,
	}))
	require.NoError(t, reg.Store(3, picks.Fields{picks.FieldIteration: 3}))
	return reg.All()
}

func TestRenderPNG(t *testing.T) {
	tr := testutil.NoiseOnset(2000, 1000, 100, 0.1, 5, 5, 1)
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, tr, records(t), tr.ID()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), "output is not a PNG")
}

func TestRenderPNGConstantTrace(t *testing.T) {
	tr := testutil.Trace(make([]float64, 50), 10)
	var buf bytes.Buffer
	assert.NoError(t, RenderPNG(&buf, tr, nil, "flat"))
}

func TestRenderPNGBadTrace(t *testing.T) {
	var buf bytes.Buffer
	err := RenderPNG(&buf, &waveform.Trace{Start: time.Now()}, nil, "")
	assert.ErrorIs(t, err, waveform.ErrBadInput)
}

func TestRenderAICHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderAICHTML(&buf, records(t), 100, "XX.TEST..HHZ"))
	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "iteration 1")
	assert.NotContains(t, html, "iteration 2")
	assert.True(t, strings.Contains(html, "refined picks=1"))

	assert.Error(t, RenderAICHTML(&buf, nil, 0, ""))
}

func TestCurveDataCentresOnMinimum(t *testing.T) {
	data := curveData([]float64{3, 3, 1, 2}, 10)
	require.Len(t, data, 4)
	first := data[0].Value.([]interface{})
	assert.InDelta(t, -0.2, first[0].(float64), 1e-12)
	lowest := data[2].Value.([]interface{})
	assert.Equal(t, 0.0, lowest[0])
	assert.Equal(t, 1.0, lowest[1])
}

func TestCurveDataSkipsMirroredFirstSample(t *testing.T) {
	data := curveData([]float64{-5, -5, 0, 1, 2}, 1)
	require.Len(t, data, 5)
	assert.Equal(t, []interface{}{0.0, -5.0}, data[1].Value)
	assert.Equal(t, []interface{}{-1.0, -5.0}, data[0].Value)

	single := curveData([]float64{7}, 1)
	require.Len(t, single, 1)
	assert.Equal(t, []interface{}{0.0, 7.0}, single[0].Value)
}
