// Package narrator asks a language model for a plain-language reading of a dataset.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/ai"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/utils"
)

// ErrEmptyNarrative is returned when the model answers with no text.
var ErrEmptyNarrative = errors.New("model returned an empty response")

// Narrative is the model's answer for one file.
type Narrative struct {
	Text             string        `json:"text" msgpack:"text"`
	Model            string        `json:"model" msgpack:"model"`
	RequestID        string        `json:"request_id,omitempty" msgpack:"request_id,omitempty"`
	PromptTokens     int           `json:"prompt_tokens" msgpack:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens" msgpack:"completion_tokens"`
	Elapsed          time.Duration `json:"elapsed_ns" msgpack:"elapsed_ns"`
}

// Options tune the completion request.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Logger      *slog.Logger
}

// Narrator sends prompts to a single runtime and model.
type Narrator struct {
	rt          ai.Runtime
	model       string
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

// New returns a Narrator using rt. An empty model selects ai.DefaultModel.
func New(rt ai.Runtime, opt Options) *Narrator {
	if opt.Model == "" {
		opt.Model = ai.DefaultModel
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	return &Narrator{
		rt:          rt,
		model:       opt.Model,
		maxTokens:   opt.MaxTokens,
		temperature: opt.Temperature,
		logger:      opt.Logger,
	}
}

// Model reports the model name requests are sent with.
func (n *Narrator) Model() string { return n.model }

// Narrate sends prompt as one user message and returns the reply verbatim.
// Errors carry fileName so callers can show them per file.
func (n *Narrator) Narrate(ctx context.Context, fileName, prompt string) (*Narrative, error) {
	if n == nil || n.rt == nil {
		return nil, fmt.Errorf("AI analysis failed for %s: no language model configured", fileName)
	}
	log := n.logger.With("file", fileName, "model", n.model)
	if mi, ok := ai.LookupModel(n.model); ok && mi.ContextTokens > 0 {
		if est := utils.CountTokens(prompt) + n.maxTokens; est > mi.ContextTokens {
			log.Warn("prompt may exceed the model context window", "estimated_tokens", est, "context_tokens", mi.ContextTokens)
		}
	}

	start := time.Now()
	resp, err := n.rt.Generate(ctx, ai.GenerateRequest{
		Model:       n.model,
		Messages:    []ai.Message{{Role: "user", Content: prompt}},
		MaxTokens:   n.maxTokens,
		Temperature: n.temperature,
	})
	elapsed := time.Since(start)
	if err != nil {
		log.Error("narration failed", "error", err, "elapsed", elapsed)
		return nil, fmt.Errorf("AI analysis failed for %s: %w", fileName, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		log.Error("narration failed", "error", ErrEmptyNarrative, "request_id", resp.RequestID)
		return nil, fmt.Errorf("AI analysis failed for %s: %w", fileName, ErrEmptyNarrative)
	}
	model := resp.Model
	if model == "" {
		model = n.model
	}
	out := &Narrative{
		Text:             text,
		Model:            model,
		RequestID:        resp.RequestID,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Elapsed:          elapsed,
	}
	log.Info("narration complete", "request_id", out.RequestID, "prompt_tokens", out.PromptTokens,
		"completion_tokens", out.CompletionTokens, "elapsed", elapsed)
	return out, nil
}

// CostUSD estimates the price of the request from the model catalog.
func (n *Narrative) CostUSD() (float64, bool) {
	if n == nil {
		return 0, false
	}
	return ai.EstimateCostUSD(n.Model, n.PromptTokens, n.CompletionTokens)
}
