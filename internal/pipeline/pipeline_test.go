package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/chart"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/narrator"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNarrator struct {
	calls   []string
	prompts []string
	err     error
}

func (f *fakeNarrator) Narrate(_ context.Context, fileName, prompt string) (*narrator.Narrative, error) {
	f.calls = append(f.calls, fileName)
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, fmt.Errorf("AI analysis failed for %s: %w", fileName, f.err)
	}
	return &narrator.Narrative{Text: "story of " + fileName, Model: "test"}, nil
}

func quietRunner(n Narrator) *Runner {
	return NewRunner(n, parser.Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func salesCSV(rows int) []byte {
	var b strings.Builder
	b.WriteString("Date,Region,Units,Price,Revenue\n")
	for i := 0; i < rows; i++ {
		units := 10 + i%7
		price := 2.5 + float64(i%3)
		fmt.Fprintf(&b, "2024-01-%02d,%s,%d,%.2f,%.2f\n", i%28+1, []string{"North", "South"}[i%2], units, price, float64(units)*price)
	}
	return []byte(b.String())
}

func TestRun_ValidFileAndMislabeledWorkbook(t *testing.T) {
	n := &fakeNarrator{}
	results := quietRunner(n).Run(context.Background(), []Upload{
		{Name: "sales.csv", Data: salesCSV(150)},
		{Name: "broken.xlsx", Data: salesCSV(5)},
	})
	require.Len(t, results, 2)

	ok := results[0]
	assert.False(t, ok.Failed)
	assert.Equal(t, StageDone, ok.Stage)
	assert.NotEmpty(t, ok.ID)
	require.NotNil(t, ok.Summary)
	assert.Equal(t, 150, ok.Summary.Rows)
	assert.Len(t, ok.Summary.Numeric, 3)
	assert.Len(t, ok.Charts, 4)
	assert.Equal(t, chart.KindHeatmap, ok.Charts[3].Kind)
	assert.Contains(t, ok.Prompt, "sales.csv")
	require.NotNil(t, ok.Narrative)
	assert.Equal(t, "story of sales.csv", ok.Narrative.Text)

	bad := results[1]
	assert.True(t, bad.Failed)
	assert.Equal(t, StageLoading, bad.Stage)
	assert.True(t, strings.HasPrefix(bad.Error, "Failed to load broken.xlsx: "), bad.Error)
	assert.Nil(t, bad.Summary)
	assert.Empty(t, bad.Charts)

	assert.Equal(t, []string{"sales.csv"}, n.calls, "narrator must not run for failed files")
	assert.Equal(t, 1, Failures(results))
}

func TestRun_NarrationFailureIsIsolated(t *testing.T) {
	n := &fakeNarrator{err: errors.New("rate limited")}
	results := quietRunner(n).Run(context.Background(), []Upload{
		{Name: "a.csv", Data: salesCSV(10)},
		{Name: "b.csv", Data: salesCSV(12)},
	})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Failed)
		assert.Equal(t, StageDone, r.Stage)
		assert.Nil(t, r.Narrative)
		assert.Contains(t, r.NarrativeError, "AI analysis failed for "+r.Name)
		assert.NotNil(t, r.Summary)
	}
	assert.Len(t, n.calls, 2)
	assert.Equal(t, 0, Failures(results))
}

func TestRun_NoNarrator(t *testing.T) {
	results := quietRunner(nil).Run(context.Background(), []Upload{{Name: "a.csv", Data: salesCSV(3)}})
	require.Len(t, results, 1)
	assert.Equal(t, StageDone, results[0].Stage)
	assert.Nil(t, results[0].Narrative)
	assert.Empty(t, results[0].NarrativeError)
	assert.NotEmpty(t, results[0].Prompt)
}

func TestRun_PromptSampleCapped(t *testing.T) {
	n := &fakeNarrator{}
	quietRunner(n).Run(context.Background(), []Upload{{Name: "big.csv", Data: salesCSV(500)}})
	require.Len(t, n.prompts, 1)
	// header line plus 100 sample rows, every one of them dated
	assert.Equal(t, 100, strings.Count(n.prompts[0], "\n2024-01-"))
}

func TestRun_TextOnlyFile(t *testing.T) {
	results := quietRunner(nil).Run(context.Background(), []Upload{
		{Name: "people.csv", Data: []byte("name,city\nAda,London\nLinus,Helsinki\n")},
	})
	r := results[0]
	assert.False(t, r.Failed)
	assert.Empty(t, r.Charts)
	assert.Empty(t, r.Summary.Numeric)
	assert.Len(t, r.Summary.Text, 2)
}

func TestRun_LoadErrors(t *testing.T) {
	results := quietRunner(nil).Run(context.Background(), []Upload{
		{Name: "empty.csv", Data: nil},
		{Name: "header_only.csv", Data: []byte("\n\n")},
		{Name: "ragged.csv", Data: []byte("a,b\n1,2,3\n")},
	})
	for _, r := range results {
		assert.True(t, r.Failed, r.Name)
		assert.Equal(t, StageLoading, r.Stage, r.Name)
		assert.Contains(t, r.Error, "Failed to load "+r.Name)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := &fakeNarrator{}
	results := quietRunner(n).Run(ctx, []Upload{{Name: "a.csv", Data: salesCSV(3)}})
	assert.True(t, results[0].Failed)
	assert.Contains(t, results[0].Error, context.Canceled.Error())
	assert.Empty(t, n.calls)
}
