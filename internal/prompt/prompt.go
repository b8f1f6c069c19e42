// Package prompt turns a dataset into the instruction text sent to the language model.
package prompt

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/dataset"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// SampleRows is the number of leading rows embedded in the prompt.
const SampleRows = 100

const analystInstructions = `You are the world's smartest and most beginner-friendly data scientist.
Explain things in plain English, use bullet points, and focus on real business insight.

Below is a sample from a dataset called **{file_name}** (CSV format):

{sample}

Please work through these steps:

1. Guess what this dataset is about. What business or activity does it describe?
2. Explain each column in everyday terms, as you would to someone who has never seen it.
3. Point out missing, unusual or suspicious values and why they matter.
4. Share 3 to 5 interesting observations: trends over time, best-selling products, top regions or managers, unusual outliers. If there is a date column, say whether things are improving or declining.
5. Explain how this data can help make decisions, such as improving sales, managing inventory or rewarding top performers.

Keep it simple and friendly, as if you were talking to a business owner.
Do not use words like skewness, variance, standard deviation or correlation unless you explain them in simple terms.`

// Builder formats analysis prompts from a fixed template.
type Builder struct {
	tpl prompt.ChatTemplate
}

// NewBuilder returns a Builder using the analyst instruction template.
func NewBuilder() *Builder {
	return &Builder{
		tpl: prompt.FromMessages(schema.FString, schema.UserMessage(analystInstructions)),
	}
}

// Build returns the prompt for ds: the instructions with the file name and
// a CSV sample of at most SampleRows rows interpolated.
func (b *Builder) Build(ctx context.Context, ds *dataset.Dataset) (string, error) {
	sample, err := Sample(ds, SampleRows)
	if err != nil {
		return "", err
	}
	msgs, err := b.tpl.Format(ctx, map[string]any{
		"file_name": ds.Name,
		"sample":    sample,
	})
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("format prompt: no messages")
	}
	return msgs[0].Content, nil
}

// Sample serializes the header and the first n rows of ds as CSV.
// Missing cells are written as empty fields.
func Sample(ds *dataset.Dataset, n int) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ds.Header()); err != nil {
		return "", fmt.Errorf("write sample header: %w", err)
	}
	if err := w.WriteAll(ds.Head(n)); err != nil {
		return "", fmt.Errorf("write sample rows: %w", err)
	}
	return buf.String(), nil
}
