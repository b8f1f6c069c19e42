package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric  Kind = "numeric"
	KindDatetime Kind = "datetime"
	KindText     Kind = "text"
	// KindEmpty marks a column with no non-missing value.
	KindEmpty Kind = "empty"
)

// Column describes one column of a Dataset. Index is the position in each row.
type Column struct {
	Name    string `json:"name" msgpack:"name"`
	Index   int    `json:"index" msgpack:"index"`
	Kind    Kind   `json:"kind" msgpack:"kind"`
	Missing int    `json:"missing" msgpack:"missing"`
}

// Numeric reports whether the column holds numbers only.
func (c Column) Numeric() bool { return c.Kind == KindNumeric }

// Options controls how raw cells become typed columns.
type Options struct {
	// MaxRows limits rows kept; 0 means unlimited.
	MaxRows int
	// DecimalSeparator and ThousandsSeparator enable locale-formatted numbers
	// such as "1.234,5". When DecimalSeparator is 0 only plain numbers parse.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// Dataset is an in-memory table of named, typed columns and ordered rows.
// Cells are kept as trimmed strings; missing cells are empty strings.
type Dataset struct {
	Name     string
	Sheet    string
	Columns  []Column
	Rows     [][]string
	Warnings []string

	numbers map[int][]float64
}

// New builds a Dataset from a header row and data rows, cleaning header
// names, normalizing missing markers and inferring the column schema.
// A data row with more fields than the header is an error.
func New(name string, header []string, rows [][]string, opt Options) (*Dataset, error) {
	if len(header) == 0 {
		return nil, ErrNoColumns
	}
	ds := &Dataset{Name: name}
	names := cleanHeader(header)
	ncol := len(names)

	total := len(rows)
	if opt.MaxRows > 0 && total > opt.MaxRows {
		rows = rows[:opt.MaxRows]
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", opt.MaxRows, total))
	}

	ds.Rows = make([][]string, 0, len(rows))
	for i, rec := range rows {
		if len(rec) > ncol {
			// line numbers count the header as line 1
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", i+2, ncol, len(rec))
		}
		row := make([]string, ncol)
		for j, v := range rec {
			v = strings.TrimSpace(v)
			if IsMissing(v) {
				v = ""
			}
			row[j] = v
		}
		ds.Rows = append(ds.Rows, row)
	}

	ds.Columns = make([]Column, ncol)
	ds.numbers = make(map[int][]float64)
	for j, n := range names {
		col := Column{Name: n, Index: j}
		col.Kind, col.Missing = ds.infer(j, opt)
		ds.Columns[j] = col
	}
	return ds, nil
}

func (ds *Dataset) infer(j int, opt Options) (Kind, int) {
	var missing, present int
	numeric, datetime := true, true
	vals := make([]float64, len(ds.Rows))
	for i, row := range ds.Rows {
		v := row[j]
		if v == "" {
			missing++
			vals[i] = math.NaN()
			continue
		}
		present++
		if numeric {
			if x, ok := parseNumeric(v, opt); ok {
				vals[i] = x
			} else {
				numeric = false
			}
		}
		if datetime {
			if _, ok := parseTimeMaybe(v); !ok {
				datetime = false
			}
		}
	}
	switch {
	case present == 0:
		return KindEmpty, missing
	case numeric:
		ds.numbers[j] = vals
		return KindNumeric, missing
	case datetime:
		return KindDatetime, missing
	default:
		return KindText, missing
	}
}

// NumRows returns the number of data rows.
func (ds *Dataset) NumRows() int { return len(ds.Rows) }

// Header returns the column names in order.
func (ds *Dataset) Header() []string {
	out := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		out[i] = c.Name
	}
	return out
}

// NumericColumns returns the numeric columns in encounter order.
func (ds *Dataset) NumericColumns() []Column {
	var out []Column
	for _, c := range ds.Columns {
		if c.Numeric() {
			out = append(out, c)
		}
	}
	return out
}

// Column looks a column up by name.
func (ds *Dataset) Column(name string) (Column, bool) {
	for _, c := range ds.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Floats returns a copy of a numeric column with NaN for missing cells,
// aligned with Rows. It returns nil for non-numeric columns.
func (ds *Dataset) Floats(c Column) []float64 {
	src, ok := ds.numbers[c.Index]
	if !ok {
		return nil
	}
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

// Values returns the non-missing values of a numeric column.
func (ds *Dataset) Values(c Column) []float64 {
	return DropNaN(ds.numbers[c.Index])
}

// Head returns up to n rows.
func (ds *Dataset) Head(n int) [][]string {
	if n > len(ds.Rows) {
		n = len(ds.Rows)
	}
	if n < 0 {
		n = 0
	}
	return ds.Rows[:n]
}

// DropNaN returns the non-NaN values of xs.
func DropNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

func cleanHeader(header []string) []string {
	names := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	dups := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for taken[name] {
			dups[h]++
			name = h + "." + strconv.Itoa(dups[h])
		}
		taken[name] = true
		names[i] = name
	}
	return names
}
