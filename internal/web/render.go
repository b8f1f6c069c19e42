package web

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/pipeline"
	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var templateFS embed.FS

type renderer struct {
	tpl *template.Template
}

func newRenderer() (*renderer, error) {
	tpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &renderer{tpl: tpl}, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.tpl.ExecuteTemplate(w, name, data)
}

type indexView struct {
	Title string
	Error string
	Limit string
}

type resultsView struct {
	Title  string
	Files  []fileView
	Failed int
}

type chartView struct {
	Title string
	Src   template.URL
}

type fileView struct {
	Name           string
	Sheet          string
	Rows           int
	Error          string
	Warnings       []string
	PreviewHeader  []string
	Preview        [][]string
	StatsHeader    []string
	Stats          [][]string
	Charts         []chartView
	Narrative      template.HTML
	NarrativeError string
	Model          string
}

// markdown renders model output; raw HTML in the source is escaped.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(buf.String())
}

func newResultsView(results []pipeline.FileResult) resultsView {
	v := resultsView{Title: title, Failed: pipeline.Failures(results)}
	for _, r := range results {
		fv := fileView{Name: r.Name, Error: r.Error, NarrativeError: r.NarrativeError}
		if s := r.Summary; s != nil {
			fv.Sheet = s.Sheet
			fv.Rows = s.Rows
			fv.Warnings = s.Warnings
			for _, c := range s.Columns {
				fv.PreviewHeader = append(fv.PreviewHeader, c.Name)
			}
			fv.Preview = s.Preview
			if len(s.Numeric) > 0 {
				fv.StatsHeader, fv.Stats = s.Table()
			}
		}
		for _, ch := range r.Charts {
			fv.Charts = append(fv.Charts, chartView{
				Title: ch.Title,
				Src:   template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(ch.PNG)),
			})
		}
		if r.Narrative != nil {
			fv.Narrative = renderMarkdown(r.Narrative.Text)
			fv.Model = r.Narrative.Model
		}
		v.Files = append(v.Files, fv)
	}
	return v
}
