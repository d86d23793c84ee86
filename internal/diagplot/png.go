// Package diagplot renders diagnostic views of a picker run: a PNG of the
// trace and its characteristic function with every pick marked, and an
// interactive HTML chart of the AIC refinement curves.
package diagplot

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/onset.picker/internal/charfunc"
	"github.com/banshee-data/onset.picker/internal/picks"
	"github.com/banshee-data/onset.picker/internal/units"
	"github.com/banshee-data/onset.picker/internal/waveform"
)

var (
	traceColor    = color.RGBA{A: 255}
	cfColor       = color.RGBA{B: 200, A: 255}
	acceptedColor = color.RGBA{G: 128, B: 129, A: 255}
	rejectedColor = color.RGBA{A: 255}
	refinedColor  = color.RGBA{R: 255, G: 215, A: 255}
)

// Size of the rendered PNG.
const (
	Width  = 8 * vg.Inch
	Height = 4.5 * vg.Inch
)

// RenderPNG draws tr in the upper panel and its characteristic function in
// the lower one. Accepted primary picks are solid, rejected ones dashed
// and refined picks gold.
func RenderPNG(w io.Writer, tr *waveform.Trace, recs []picks.Record, title string) error {
	if err := tr.Validate(); err != nil {
		return err
	}

	top, err := panel(tr, tr.Samples, traceColor, recs)
	if err != nil {
		return err
	}
	top.Title.Text = title
	top.Y.Label.Text = "Counts"

	bottom, err := panel(tr, charfunc.Compute(tr.Samples), cfColor, recs)
	if err != nil {
		return err
	}
	bottom.X.Label.Text = fmt.Sprintf("Seconds after %s", units.FormatTime(tr.Start))
	bottom.Y.Label.Text = "CF"

	img := vgimg.New(Width, Height)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Millimeter}
	canvases := plot.Align([][]*plot.Plot{{top}, {bottom}}, tiles, dc)
	top.Draw(canvases[0][0])
	bottom.Draw(canvases[1][0])

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func panel(tr *waveform.Trace, samples []float64, c color.Color, recs []picks.Record) (*plot.Plot, error) {
	p := plot.New()

	pts := make(plotter.XYs, len(samples))
	for i, v := range samples {
		pts[i] = plotter.XY{X: float64(i) / tr.SamplingRate, Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("trace line: %w", err)
	}
	line.Color = c
	line.Width = vg.Points(0.5)
	p.Add(line)

	lo, hi := floats.Min(samples), floats.Max(samples)
	if lo == hi {
		lo, hi = lo-1, hi+1
	}

	seen := map[string]bool{}
	mark := func(label string, sec float64, col color.Color, dashed bool) error {
		l, err := plotter.NewLine(plotter.XYs{{X: sec, Y: lo}, {X: sec, Y: hi}})
		if err != nil {
			return fmt.Errorf("pick line: %w", err)
		}
		l.Color = col
		l.Width = vg.Points(1.5)
		if dashed {
			l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(l)
		if !seen[label] {
			p.Legend.Add(label, l)
			seen[label] = true
		}
		return nil
	}

	for _, rec := range recs {
		if rec.PrimaryTime == nil {
			continue
		}
		sec := rec.PrimaryTime.Sub(tr.Start).Seconds()
		var err error
		if rec.IsAccepted() {
			err = mark("accepted", sec, acceptedColor, false)
		} else {
			err = mark("rejected", sec, rejectedColor, true)
		}
		if err != nil {
			return nil, err
		}
		if rec.RefinedTime != nil {
			if err := mark("AIC", rec.RefinedTime.Sub(tr.Start).Seconds(), refinedColor, false); err != nil {
				return nil, err
			}
		}
	}
	p.Legend.Top = true
	return p, nil
}
