package analysis

import (
	"math"
	"sort"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
// Undefined coefficients (fewer than two shared rows, or a constant column) are NaN.
type CorrMatrix struct {
	Columns []string   `json:"columns" msgpack:"columns"`
	Values  [][]Number `json:"values" msgpack:"values"` // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Correlate computes pairwise Pearson correlations over the numeric columns,
// using the rows where both columns have a value. It returns nil when the
// dataset has fewer than two numeric columns.
func Correlate(ds *dataset.Dataset) *CorrMatrix {
	cols := ds.NumericColumns()
	if len(cols) < 2 {
		return nil
	}
	data := make([][]float64, len(cols))
	names := make([]string, len(cols))
	for i, c := range cols {
		data[i] = ds.Floats(c)
		names[i] = c.Name
	}
	n := len(cols)
	mat := make([][]Number, n)
	for i := range mat {
		mat[i] = make([]Number, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			r := pairwise(data[a], data[b])
			mat[a][b] = Number(r)
			mat[b][a] = Number(r)
		}
	}
	return &CorrMatrix{Columns: names, Values: mat}
}

func pairwise(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN()
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// TopPairs lists off-diagonal pairs ordered by |r|, skipping undefined ones.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	if m == nil {
		return nil
	}
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := float64(m.Values[i][j])
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: r})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai := math.Abs(pairs[i].R)
		aj := math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}
