package diagplot

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/onset.picker/internal/picks"
)

// RenderAICHTML writes an HTML line chart of every refinement curve in
// recs. Each curve is shifted so its minimum, the refined pick, sits at
// zero seconds. rate is the sampling rate the curves were computed at.
func RenderAICHTML(w io.Writer, recs []picks.Record, rate float64, title string) error {
	if rate <= 0 {
		return fmt.Errorf("sampling rate must be positive, got %g", rate)
	}

	line := charts.NewLine()
	count := 0
	for _, rec := range recs {
		if len(rec.RefinementCurve) == 0 {
			continue
		}
		line.AddSeries(fmt.Sprintf("iteration %d", rec.Iteration), curveData(rec.RefinementCurve, rate),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		count++
	}

	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "AIC refinement", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("refined picks=%d rate=%gHz", count, rate)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "s from refined pick", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "AIC", NameLocation: "middle", NameGap: 40}),
	)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render AIC chart: %w", err)
	}
	return nil
}

// curveData centres curve on its minimum. Index 0 mirrors index 1 and is
// never the changepoint, so the search starts at 1 and ties keep the
// smallest index.
func curveData(curve []float64, rate float64) []opts.LineData {
	best := 0
	if len(curve) > 1 {
		best = 1
		for i := 2; i < len(curve); i++ {
			if curve[i] < curve[best] {
				best = i
			}
		}
	}
	out := make([]opts.LineData, len(curve))
	for i, v := range curve {
		out[i] = opts.LineData{Value: []interface{}{float64(i-best) / rate, v}}
	}
	return out
}
