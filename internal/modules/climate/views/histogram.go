package views

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// HistogramBins is the bin count used for temperature histograms.
const HistogramBins = 12

// Bin is one histogram bucket. Every bin covers [Min, Max) except the last,
// which also includes Max.
type Bin struct {
	Min   float64
	Max   float64
	Count int
}

// BinValues spreads values over n evenly spaced bins spanning [min, max].
// All-equal input spans [v-0.5, v+0.5]. Empty input yields n empty bins over
// [0, 1]. NaN values are skipped.
func BinValues(values []float64, n int) []Bin {
	if n < 1 {
		n = 1
	}

	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}

	lo, hi := 0.0, 1.0
	if len(finite) > 0 {
		lo, hi = finite[0], finite[0]
		for _, v := range finite[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if lo == hi {
			lo, hi = lo-0.5, hi+0.5
		}
	}

	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Min = lo + float64(i)*width
		bins[i].Max = lo + float64(i+1)*width
	}
	bins[n-1].Max = hi

	for _, v := range finite {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		if i < 0 {
			i = 0
		}
		bins[i].Count++
	}
	return bins
}

var barColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// RenderHistogramPNG draws a 12-bin frequency histogram of values and
// returns it PNG-encoded. Output depends only on the inputs.
func RenderHistogramPNG(title string, values []float64) ([]byte, error) {
	bins := BinValues(values, HistogramBins)

	pb := make([]plotter.HistogramBin, len(bins))
	total := 0
	for i, b := range bins {
		pb[i] = plotter.HistogramBin{Min: b.Min, Max: b.Max, Weight: float64(b.Count)}
		total += b.Count
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Temperature"
	p.Y.Label.Text = "Frequency"

	p.Add(&plotter.Histogram{
		Bins:      pb,
		Width:     bins[0].Max - bins[0].Min,
		FillColor: barColor,
		LineStyle: plotter.DefaultLineStyle,
	})
	p.Y.Min = 0
	if total == 0 {
		// An all-zero histogram would otherwise have an empty Y range.
		p.Y.Max = 1
	}

	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("histogram writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode histogram png: %w", err)
	}
	return buf.Bytes(), nil
}
