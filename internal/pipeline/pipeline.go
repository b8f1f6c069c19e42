// Package pipeline runs the per-file analysis: load, profile, chart, prompt, narrate.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/analysis"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/chart"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/dataset"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/narrator"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/parser"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/prompt"
	"github.com/google/uuid"
)

// Stage is the step a file reached.
type Stage string

const (
	StageLoading     Stage = "loading"
	StageProfiling   Stage = "profiling"
	StageVisualizing Stage = "visualizing"
	StagePrompting   Stage = "prompting"
	StageNarrating   Stage = "narrating"
	StageDone        Stage = "done"
)

// Upload is one named file in memory.
type Upload struct {
	Name string
	Data []byte
}

// Narrator produces the narrative for a prompt.
type Narrator interface {
	Narrate(ctx context.Context, fileName, prompt string) (*narrator.Narrative, error)
}

// FileResult is everything produced for one upload. When Failed is set,
// Stage is where processing stopped and Error says why. A narration
// failure leaves Failed unset and fills NarrativeError instead.
type FileResult struct {
	ID             string              `json:"id" msgpack:"id"`
	Name           string              `json:"name" msgpack:"name"`
	Stage          Stage               `json:"stage" msgpack:"stage"`
	Failed         bool                `json:"failed" msgpack:"failed"`
	Error          string              `json:"error,omitempty" msgpack:"error,omitempty"`
	Summary        *analysis.Summary   `json:"summary,omitempty" msgpack:"summary,omitempty"`
	Charts         []chart.Chart       `json:"charts,omitempty" msgpack:"charts,omitempty"`
	Prompt         string              `json:"prompt,omitempty" msgpack:"prompt,omitempty"`
	Narrative      *narrator.Narrative `json:"narrative,omitempty" msgpack:"narrative,omitempty"`
	NarrativeError string              `json:"narrative_error,omitempty" msgpack:"narrative_error,omitempty"`
	Elapsed        time.Duration       `json:"elapsed_ns" msgpack:"elapsed_ns"`
}

// Runner holds the collaborators shared by every file. A nil Narrator
// skips narration; the prompt is still built.
type Runner struct {
	Parser   parser.Options
	Profile  analysis.Options
	Narrator Narrator
	Prompts  *prompt.Builder
	Logger   *slog.Logger
}

// NewRunner returns a Runner with default profiling options.
func NewRunner(n Narrator, opt parser.Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Parser:   opt,
		Profile:  analysis.DefaultOptions(),
		Narrator: n,
		Prompts:  prompt.NewBuilder(),
		Logger:   logger,
	}
}

// Run analyzes uploads in order. A failure in one file never affects the others.
func (r *Runner) Run(ctx context.Context, uploads []Upload) []FileResult {
	out := make([]FileResult, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, r.Analyze(ctx, u))
	}
	return out
}

// Analyze runs every stage for a single upload.
func (r *Runner) Analyze(ctx context.Context, u Upload) (res FileResult) {
	log := r.logger().With("file", u.Name)
	start := time.Now()
	res = FileResult{ID: uuid.NewString(), Name: u.Name, Stage: StageLoading}
	defer func() {
		res.Elapsed = time.Since(start)
		if res.Failed {
			log.Warn("file failed", "stage", res.Stage, "error", res.Error)
		} else {
			log.Info("file analyzed", "elapsed", res.Elapsed, "charts", len(res.Charts), "narrated", res.Narrative != nil)
		}
	}()

	var ds *dataset.Dataset
	err := run(ctx, func() error {
		var err error
		ds, err = parser.Parse(u.Name, u.Data, r.Parser)
		return err
	})
	if err != nil {
		return fail(res, fmt.Sprintf("Failed to load %s: %v", u.Name, err))
	}
	log.Debug("loaded", "rows", ds.NumRows(), "columns", len(ds.Columns))

	res.Stage = StageProfiling
	if err := run(ctx, func() error {
		res.Summary = analysis.Describe(ds, r.Profile)
		return nil
	}); err != nil {
		return fail(res, fmt.Sprintf("Profiling %s failed: %v", u.Name, err))
	}

	res.Stage = StageVisualizing
	if err := run(ctx, func() error {
		var err error
		res.Charts, err = chart.Render(ds)
		return err
	}); err != nil {
		return fail(res, fmt.Sprintf("Charting %s failed: %v", u.Name, err))
	}

	res.Stage = StagePrompting
	if err := run(ctx, func() error {
		var err error
		res.Prompt, err = r.prompts().Build(ctx, ds)
		return err
	}); err != nil {
		return fail(res, fmt.Sprintf("Building the prompt for %s failed: %v", u.Name, err))
	}

	if r.Narrator != nil {
		res.Stage = StageNarrating
		n, err := r.Narrator.Narrate(ctx, u.Name, res.Prompt)
		if err != nil {
			res.NarrativeError = err.Error()
		} else {
			res.Narrative = n
		}
	}
	res.Stage = StageDone
	return res
}

// Failures returns how many results failed before narration.
func Failures(results []FileResult) int {
	n := 0
	for _, r := range results {
		if r.Failed {
			n++
		}
	}
	return n
}

func fail(res FileResult, msg string) FileResult {
	res.Failed = true
	res.Error = msg
	return res
}

// run executes one stage, turning a panic into an error and refusing to
// start once ctx is done.
func run(ctx context.Context, fn func() error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("internal error: %v", p)
		}
	}()
	return fn()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) prompts() *prompt.Builder {
	if r.Prompts != nil {
		return r.Prompts
	}
	return prompt.NewBuilder()
}
