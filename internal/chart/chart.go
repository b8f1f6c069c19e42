// Package chart renders distribution and correlation charts as PNG images.
package chart

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/analysis"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/dataset"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// Kind identifies the chart type.
type Kind string

const (
	KindHistogram Kind = "histogram"
	KindHeatmap   Kind = "heatmap"
)

// Chart is one rendered image.
type Chart struct {
	// Index is the 1-based position in Render's output; 0 for a chart
	// drawn on its own.
	Index  int    `json:"index" msgpack:"index"`
	Kind   Kind   `json:"kind" msgpack:"kind"`
	Title  string `json:"title" msgpack:"title"`
	Column string `json:"column,omitempty" msgpack:"column,omitempty"`
	PNG    []byte `json:"png" msgpack:"png"`
}

var unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// FileName returns a filesystem-safe PNG name for the chart. The Index
// prefix keeps names unique when column names only differ in punctuation.
func (c Chart) FileName() string {
	base := "correlation_heatmap"
	if c.Kind == KindHistogram {
		base = "hist_" + strings.Trim(unsafeChars.ReplaceAllString(c.Column, "_"), "_")
	}
	if c.Index > 0 {
		base = fmt.Sprintf("%02d_%s", c.Index, base)
	}
	return base + ".png"
}

// Size of rendered images.
var (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// Render draws one histogram per numeric column in column order and, when
// there are at least two numeric columns, a correlation heat map last.
func Render(ds *dataset.Dataset) ([]Chart, error) {
	cols := ds.NumericColumns()
	charts := make([]Chart, 0, len(cols)+1)
	for _, c := range cols {
		ch, err := Histogram(c.Name, ds.Values(c))
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", c.Name, err)
		}
		ch.Index = len(charts) + 1
		charts = append(charts, ch)
	}
	if len(cols) > 1 {
		ch, err := Heatmap(analysis.Correlate(ds))
		if err != nil {
			return nil, fmt.Errorf("correlation heatmap: %w", err)
		}
		ch.Index = len(charts) + 1
		charts = append(charts, ch)
	}
	return charts, nil
}

// encode renders p to PNG. gonum/plot panics on some degenerate inputs, so
// panics are returned as errors.
func encode(p *plot.Plot, w, h vg.Length) (b []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render: %v", r)
		}
	}()
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
