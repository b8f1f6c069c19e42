package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/parser"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/pipeline"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaOutputPath  string
	anaChartsDir   string
	anaJSON        bool
	anaNoAI        bool
	anaPrintPrompt bool
	anaDelimiter   string
	anaDecimal     string
	anaThousands   string
	anaSheetName   string
	anaSheetIndex  int
	anaMaxRows     int
	anaOutlierThr  float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file-or-glob>...",
	Short: "Profile, chart and explain one or more CSV/XLSX files",
	Example: `  dataanalyst analyze sales.csv
  dataanalyst analyze "data/*.xlsx" --charts-dir charts --output report.md
  dataanalyst analyze sales.csv --no-ai --print-prompt`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		popt, err := parserOptions()
		if err != nil {
			return err
		}
		paths, err := expandInputs(args)
		if err != nil {
			return err
		}

		var n pipeline.Narrator
		if !anaNoAI {
			c, err := requireConfig()
			if err != nil {
				return err
			}
			hn, err := newNarrator(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("init %s runtime: %w", c.Provider, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "⚙ Narrating with provider=%s model=%s\n", c.Provider, hn.n.Model())
			n = hn
		}
		runner := pipeline.NewRunner(n, popt, slog.Default())
		if anaOutlierThr > 0 {
			runner.Profile.OutlierThreshold = anaOutlierThr
		}

		results := analyzeFiles(cmd.Context(), cmd.ErrOrStderr(), runner, paths)

		out := cmd.OutOrStdout()
		if anaJSON {
			b, err := utils.PrettyJSON(results)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		} else {
			report := renderReport(results)
			if anaOutputPath != "" {
				if err := utils.SafeWriteFile(anaOutputPath, []byte(report)); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote report to %s\n", anaOutputPath)
			} else {
				fmt.Fprint(out, report)
			}
		}
		if anaChartsDir != "" {
			if err := writeCharts(cmd.ErrOrStderr(), anaChartsDir, results); err != nil {
				return err
			}
		}

		failed := pipeline.Failures(results)
		fmt.Fprintf(cmd.ErrOrStderr(), "\n✓ Analyzed %d/%d files\n", len(results)-failed, len(results))
		if failed == len(results) {
			return fmt.Errorf("all %d files failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the Markdown report to this path instead of stdout")
	analyzeCmd.Flags().StringVar(&anaChartsDir, "charts-dir", "", "directory to save chart PNGs (one subdirectory per file)")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "print results as JSON instead of Markdown")
	analyzeCmd.Flags().BoolVar(&anaNoAI, "no-ai", false, "skip the language model narrative")
	analyzeCmd.Flags().BoolVar(&anaPrintPrompt, "print-prompt", false, "include the prompt sent to the model in the report")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|'")
	analyzeCmd.Flags().StringVar(&anaDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	analyzeCmd.Flags().StringVar(&anaThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	analyzeCmd.Flags().StringVar(&anaSheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	analyzeCmd.Flags().IntVar(&anaSheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	analyzeCmd.Flags().IntVar(&anaMaxRows, "max-rows", 0, "maximum rows to load per file (0 = unlimited)")
	analyzeCmd.Flags().Float64Var(&anaOutlierThr, "outlier-threshold", 0, "robust |z| threshold for outliers (default 3.5)")
}

func parserOptions() (parser.Options, error) {
	var opt parser.Options
	switch anaDelimiter {
	case "", ",":
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", anaDelimiter)
	}
	switch strings.ToLower(strings.TrimSpace(anaDecimal)) {
	case ",", "comma":
		opt.Dataset.DecimalSeparator = ','
	case ".", "dot":
		opt.Dataset.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", anaDecimal)
	}
	switch strings.ToLower(strings.TrimSpace(anaThousands)) {
	case ",":
		opt.Dataset.ThousandsSeparator = ','
	case ".":
		opt.Dataset.ThousandsSeparator = '.'
	case "space", " ":
		opt.Dataset.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", anaThousands)
	}
	if opt.Dataset.ThousandsSeparator != 0 && opt.Dataset.DecimalSeparator == 0 {
		opt.Dataset.DecimalSeparator = '.'
		if opt.Dataset.ThousandsSeparator == '.' {
			opt.Dataset.DecimalSeparator = ','
		}
	}
	if anaMaxRows < 0 {
		return opt, fmt.Errorf("--max-rows must be >= 0")
	}
	opt.Dataset.MaxRows = anaMaxRows
	opt.SheetName = anaSheetName
	opt.SheetIndex = anaSheetIndex
	return opt, nil
}

// expandInputs resolves glob patterns; plain paths pass through unchanged so
// a missing file is reported per file rather than aborting the run.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, a := range args {
		if !strings.ContainsAny(a, "*?[") {
			paths = append(paths, a)
			continue
		}
		matches, err := filepath.Glob(a)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", a, err)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files matched the provided patterns")
	}
	return paths, nil
}

func analyzeFiles(ctx context.Context, progress io.Writer, runner *pipeline.Runner, paths []string) []pipeline.FileResult {
	results := make([]pipeline.FileResult, 0, len(paths))
	for i, path := range paths {
		name := filepath.Base(path)
		fmt.Fprintf(progress, "[%d/%d] Processing %s...\n", i+1, len(paths), name)
		data, err := os.ReadFile(path)
		if err != nil {
			res := pipeline.FileResult{Name: name, Stage: pipeline.StageLoading, Failed: true,
				Error: fmt.Sprintf("Failed to load %s: %v", name, err)}
			fmt.Fprintf(progress, "  ✗ %s\n", res.Error)
			results = append(results, res)
			continue
		}
		res := runner.Analyze(ctx, pipeline.Upload{Name: name, Data: data})
		switch {
		case res.Failed:
			fmt.Fprintf(progress, "  ✗ %s\n", res.Error)
		case res.NarrativeError != "":
			fmt.Fprintf(progress, "  ⚠ %s\n", res.NarrativeError)
		default:
			fmt.Fprintf(progress, "  ✓ %d rows, %d columns, %d charts (%s)\n",
				res.Summary.Rows, len(res.Summary.Columns), len(res.Charts), res.Elapsed.Round(time.Millisecond))
		}
		results = append(results, res)
	}
	return results
}

func renderReport(results []pipeline.FileResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		if r.Failed {
			fmt.Fprintf(&b, "# %s\n\n> %s\n", r.Name, r.Error)
			continue
		}
		b.WriteString(r.Summary.Markdown())
		if anaPrintPrompt {
			fmt.Fprintf(&b, "\n## Prompt\n\n```text\n%s\n```\n", r.Prompt)
		}
		switch {
		case r.Narrative != nil:
			fmt.Fprintf(&b, "\n## AI Analysis\n\n%s\n", strings.TrimSpace(r.Narrative.Text))
			fmt.Fprintf(&b, "\n_model %s, %d prompt + %d completion tokens", r.Narrative.Model, r.Narrative.PromptTokens, r.Narrative.CompletionTokens)
			if cost, ok := r.Narrative.CostUSD(); ok && cost > 0 {
				fmt.Fprintf(&b, ", ~$%.4f", cost)
			}
			b.WriteString("_\n")
		case r.NarrativeError != "":
			fmt.Fprintf(&b, "\n## AI Analysis\n\n> %s\n", r.NarrativeError)
		}
	}
	return b.String()
}

func writeCharts(progress io.Writer, dir string, results []pipeline.FileResult) error {
	for i, r := range results {
		if len(r.Charts) == 0 {
			continue
		}
		sub := filepath.Join(dir, chartsSubdir(i, r.Name))
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return fmt.Errorf("create charts dir: %w", err)
		}
		for _, c := range r.Charts {
			if err := utils.SafeWriteFile(filepath.Join(sub, c.FileName()), c.PNG); err != nil {
				return fmt.Errorf("write chart %s: %w", c.FileName(), err)
			}
		}
		fmt.Fprintf(progress, "✓ Saved %d charts to %s\n", len(r.Charts), sub)
	}
	return nil
}

// chartsSubdir names a file's chart directory by its position and full name,
// so data.csv and data.xlsx, or two report.csv from different folders, never share one.
func chartsSubdir(i int, name string) string {
	return fmt.Sprintf("%02d_%s", i+1, strings.ReplaceAll(name, ".", "_"))
}
