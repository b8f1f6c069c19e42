package analysis

import (
	"math"
	"sort"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// Statistics lists the rows of the descriptive statistics table, in order.
var Statistics = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Options controls profiling behavior.
type Options struct {
	// PreviewRows is how many leading rows the summary keeps for display.
	PreviewRows int
	// OutlierThreshold is the robust |z| above which a value counts as an
	// outlier; 0 means 3.5.
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset profiling.
func DefaultOptions() Options {
	return Options{PreviewRows: 5, OutlierThreshold: 3.5}
}

// Summary is the read-only profile of one dataset.
type Summary struct {
	Name     string           `json:"name" msgpack:"name"`
	Sheet    string           `json:"sheet,omitempty" msgpack:"sheet,omitempty"`
	Rows     int              `json:"rows" msgpack:"rows"`
	Columns  []dataset.Column `json:"columns" msgpack:"columns"`
	Numeric  []NumericStats   `json:"numeric" msgpack:"numeric"`
	Text     []TextStats      `json:"text,omitempty" msgpack:"text,omitempty"`
	Corr     *CorrMatrix      `json:"correlation,omitempty" msgpack:"correlation,omitempty"`
	Preview  [][]string       `json:"preview" msgpack:"preview"`
	Warnings []string         `json:"warnings,omitempty" msgpack:"warnings,omitempty"`
}

// NumericStats holds descriptive statistics for one numeric column.
// Std is the sample standard deviation (n-1) and is NaN below two values.
type NumericStats struct {
	Column  string `json:"column" msgpack:"column"`
	Count   int    `json:"count" msgpack:"count"`
	Mean    Number `json:"mean" msgpack:"mean"`
	Std     Number `json:"std" msgpack:"std"`
	Min     Number `json:"min" msgpack:"min"`
	Q25     Number `json:"q25" msgpack:"q25"`
	Median  Number `json:"median" msgpack:"median"`
	Q75     Number `json:"q75" msgpack:"q75"`
	Max     Number `json:"max" msgpack:"max"`
	Missing int    `json:"missing" msgpack:"missing"`
	// Outliers (robust Z via MAD); zero threshold means not computed.
	OutliersCount    int     `json:"outliers" msgpack:"outliers"`
	OutliersMaxAbsZ  Number  `json:"outliers_max_abs_z" msgpack:"outliers_max_abs_z"`
	OutlierThreshold float64 `json:"outlier_threshold,omitempty" msgpack:"outlier_threshold,omitempty"`
}

// Value returns the statistic named as in Statistics.
func (s NumericStats) Value(name string) float64 {
	switch name {
	case "count":
		return float64(s.Count)
	case "mean":
		return float64(s.Mean)
	case "std":
		return float64(s.Std)
	case "min":
		return float64(s.Min)
	case "25%":
		return float64(s.Q25)
	case "50%":
		return float64(s.Median)
	case "75%":
		return float64(s.Q75)
	case "max":
		return float64(s.Max)
	}
	return math.NaN()
}

// TextStats describes a non-numeric column.
type TextStats struct {
	Column  string       `json:"column" msgpack:"column"`
	Kind    dataset.Kind `json:"kind" msgpack:"kind"`
	Count   int          `json:"count" msgpack:"count"`
	Unique  int          `json:"unique" msgpack:"unique"`
	Top     string       `json:"top,omitempty" msgpack:"top,omitempty"`
	Freq    int          `json:"freq" msgpack:"freq"`
	Missing int          `json:"missing" msgpack:"missing"`
}

// Describe computes descriptive statistics for every numeric column in
// column order. Non-numeric columns are summarized separately in Text.
func Describe(ds *dataset.Dataset, opt Options) *Summary {
	if opt.PreviewRows <= 0 {
		opt.PreviewRows = 5
	}
	s := &Summary{
		Name:     ds.Name,
		Sheet:    ds.Sheet,
		Rows:     ds.NumRows(),
		Columns:  ds.Columns,
		Preview:  ds.Head(opt.PreviewRows),
		Warnings: ds.Warnings,
		Numeric:  []NumericStats{},
	}
	for _, c := range ds.Columns {
		if c.Numeric() {
			st := describeNumeric(c.Name, ds.Values(c), opt)
			st.Missing = c.Missing
			s.Numeric = append(s.Numeric, st)
			continue
		}
		s.Text = append(s.Text, describeText(ds, c))
	}
	s.Corr = Correlate(ds)
	return s
}

func describeNumeric(name string, vals []float64, opt Options) NumericStats {
	st := NumericStats{Column: name, Count: len(vals)}
	nan := Number(math.NaN())
	if len(vals) == 0 {
		st.Mean, st.Std, st.Min, st.Q25, st.Median, st.Q75, st.Max = nan, nan, nan, nan, nan, nan, nan
		return st
	}
	mean, std := stat.MeanStdDev(vals, nil)
	if len(vals) < 2 {
		std = math.NaN()
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	st.Mean = Number(mean)
	st.Std = Number(std)
	st.Min = Number(sorted[0])
	st.Q25 = Number(quantile(sorted, 0.25))
	st.Median = Number(quantile(sorted, 0.5))
	st.Q75 = Number(quantile(sorted, 0.75))
	st.Max = Number(sorted[len(sorted)-1])

	if len(vals) >= 8 {
		thr := opt.OutlierThreshold
		if thr <= 0 {
			thr = 3.5
		}
		st.OutliersCount, st.OutliersMaxAbsZ = robustOutliers(vals, thr)
		st.OutlierThreshold = thr
	}
	return st
}

// robustOutliers counts values whose modified z-score exceeds thr.
func robustOutliers(vals []float64, thr float64) (int, Number) {
	median, mad := medianMAD(vals)
	if mad == 0 {
		return 0, 0
	}
	var cnt int
	maxAbsZ := 0.0
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			cnt++
		}
		if az > maxAbsZ {
			maxAbsZ = az
		}
	}
	return cnt, Number(maxAbsZ)
}

func describeText(ds *dataset.Dataset, c dataset.Column) TextStats {
	ts := TextStats{Column: c.Name, Kind: c.Kind, Missing: c.Missing}
	counts := make(map[string]int)
	for _, row := range ds.Rows {
		v := row[c.Index]
		if v == "" {
			continue
		}
		ts.Count++
		counts[v]++
		// first value to reach the highest count wins ties
		if counts[v] > ts.Freq {
			ts.Freq = counts[v]
			ts.Top = v
		}
	}
	ts.Unique = len(counts)
	return ts
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// quantile interpolates linearly between closest ranks (position q*(n-1)).
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
