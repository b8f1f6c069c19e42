package chart

import (
	"errors"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const maxBins = 50

var (
	barColor = color.RGBA{R: 76, G: 114, B: 176, A: 160}
	kdeColor = color.RGBA{R: 31, G: 58, B: 105, A: 255}
)

// Histogram renders the distribution of vals with a kernel density curve
// scaled to counts. The curve is left out when vals has no spread.
func Histogram(column string, vals []float64) (Chart, error) {
	if len(vals) == 0 {
		return Chart{}, errors.New("no values")
	}
	p := plot.New()
	p.Title.Text = column + " - Value Distribution"
	p.X.Label.Text = column
	p.Y.Label.Text = "Count"

	bins := binCount(vals)
	h, err := plotter.NewHist(plotter.Values(vals), bins)
	if err != nil {
		return Chart{}, err
	}
	h.FillColor = barColor
	h.LineStyle.Color = color.White
	p.Add(h)

	if kde := density(vals); kde != nil {
		lo, hi := minMax(vals)
		scale := float64(len(vals)) * h.Width
		f := plotter.NewFunction(func(x float64) float64 { return kde(x) * scale })
		f.XMin, f.XMax = lo, hi
		f.Samples = 200
		f.LineStyle.Color = kdeColor
		f.LineStyle.Width = vg.Points(2)
		p.Add(f)
	}
	p.Y.Min = 0

	png, err := encode(p, Width, Height)
	if err != nil {
		return Chart{}, err
	}
	return Chart{Kind: KindHistogram, Title: p.Title.Text, Column: column, PNG: png}, nil
}

// binCount picks the larger of the Sturges and Freedman-Diaconis estimates.
func binCount(vals []float64) int {
	n := len(vals)
	if n < 2 {
		return 1
	}
	sturges := int(math.Ceil(math.Log2(float64(n)))) + 1
	sorted := make([]float64, n)
	copy(sorted, vals)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[n-1]
	if hi == lo {
		return 1
	}
	fd := 0
	iqr := stat.Quantile(0.75, stat.LinInterp, sorted, nil) - stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	if iqr > 0 {
		width := 2 * iqr / math.Cbrt(float64(n))
		fd = int(math.Ceil((hi - lo) / width))
	}
	bins := sturges
	if fd > bins {
		bins = fd
	}
	if bins > maxBins {
		bins = maxBins
	}
	return bins
}

// density returns a Gaussian kernel density estimate using Scott's rule for
// the bandwidth, or nil when the bandwidth would be zero.
func density(vals []float64) func(float64) float64 {
	n := len(vals)
	if n < 2 {
		return nil
	}
	sd := stat.StdDev(vals, nil)
	if sd == 0 || math.IsNaN(sd) {
		return nil
	}
	bw := sd * math.Pow(float64(n), -0.2)
	norm := 1 / (float64(n) * bw * math.Sqrt(2*math.Pi))
	return func(x float64) float64 {
		var sum float64
		for _, v := range vals {
			u := (x - v) / bw
			sum += math.Exp(-0.5 * u * u)
		}
		return sum * norm
	}
}

func minMax(vals []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
