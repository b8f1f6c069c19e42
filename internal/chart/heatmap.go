package chart

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/analysis"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// corrGrid adapts a correlation matrix to plotter.GridXYZ with the first
// column drawn at the top.
type corrGrid struct{ m *analysis.CorrMatrix }

func (g corrGrid) Dims() (c, r int) { n := len(g.m.Columns); return n, n }
func (g corrGrid) Z(c, r int) float64 {
	return float64(g.m.Values[r][c])
}
func (g corrGrid) X(c int) float64 { return float64(c) }
func (g corrGrid) Y(r int) float64 { return float64(len(g.m.Columns) - 1 - r) }

// Heatmap renders an annotated correlation heat map on a diverging
// blue-red scale fixed to [-1, 1]. Undefined coefficients are drawn grey.
func Heatmap(m *analysis.CorrMatrix) (Chart, error) {
	if m == nil || len(m.Columns) < 2 {
		return Chart{}, errors.New("need at least two numeric columns")
	}
	n := len(m.Columns)
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	g := corrGrid{m: m}
	hm := plotter.NewHeatMap(g, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = color.Gray{Y: 210}

	p := plot.New()
	p.Title.Text = "Correlation Heatmap"
	p.Add(hm)

	xys := make(plotter.XYs, 0, n*n)
	labels := make([]string, 0, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			xys = append(xys, plotter.XY{X: g.X(c), Y: g.Y(r)})
			v := g.Z(c, r)
			if math.IsNaN(v) {
				labels = append(labels, "NaN")
			} else {
				labels = append(labels, fmt.Sprintf("%.2f", v))
			}
		}
	}
	ann, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return Chart{}, err
	}
	for i := range ann.TextStyle {
		ann.TextStyle[i].XAlign = draw.XCenter
		ann.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(ann)

	xt := make([]plot.Tick, n)
	yt := make([]plot.Tick, n)
	for i, name := range m.Columns {
		xt[i] = plot.Tick{Value: g.X(i), Label: name}
		yt[i] = plot.Tick{Value: g.Y(i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xt)
	p.Y.Tick.Marker = plot.ConstantTicks(yt)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Min, p.X.Max = -0.5, float64(n)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(n)-0.5

	side := Height
	if grow := vg.Length(n) * vg.Inch; grow > side {
		side = grow
	}
	if side > 14*vg.Inch {
		side = 14 * vg.Inch
	}
	png, err := encode(p, side+vg.Inch, side)
	if err != nil {
		return Chart{}, err
	}
	return Chart{Kind: KindHeatmap, Title: p.Title.Text, PNG: png}, nil
}
