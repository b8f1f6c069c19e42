package cmd

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/ai"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/narrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHint(t *testing.T) {
	base := &ai.APIError{StatusCode: 400, Message: "x"}
	cases := []struct {
		name     string
		err      error
		provider string
		want     string
	}{
		{"missing key", fmt.Errorf("AI analysis failed for a.csv: %w", ai.ErrMissingAPIKey), ai.ProviderGroq, "GROQ_API_KEY"},
		{"auth", &ai.AuthError{APIError: base}, ai.ProviderGroq, "API key was rejected"},
		{"rate limit wait", &ai.RateLimitError{APIError: base, RetryAfter: 7 * time.Second}, ai.ProviderGroq, "~7s"},
		{"rate limit", &ai.RateLimitError{APIError: base}, ai.ProviderGroq, "please retry"},
		{"model hosted", &ai.ModelNotFoundError{APIError: base}, ai.ProviderGroq, "models show"},
		{"model ollama", &ai.ModelNotFoundError{APIError: base}, ai.ProviderOllama, "ollama pull llama3"},
		{"quota", &ai.QuotaExceededError{APIError: base}, ai.ProviderGroq, "billing"},
		{"bad request", &ai.BadRequestError{APIError: base}, ai.ProviderGroq, "--model"},
		{"server", &ai.ServerError{APIError: base}, ai.ProviderGroq, "retry later"},
		{"unreachable ollama", &ai.UnreachableError{}, ai.ProviderOllama, "http://127.0.0.1:11434"},
		{"empty", narrator.ErrEmptyNarrative, ai.ProviderGroq, "another model"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, errorHint(tc.err, tc.provider, "llama3", "http://127.0.0.1:11434"), tc.want)
		})
	}
	assert.Empty(t, errorHint(errors.New("boom"), ai.ProviderGroq, "m", ""))
	// the prompt sample is fixed, so row limits never shrink a rejected request
	assert.NotContains(t, errorHint(&ai.BadRequestError{APIError: base}, ai.ProviderGroq, "m", ""), "--max-rows")
}

type failingRuntime struct{ err error }

func (f failingRuntime) Generate(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
	return nil, f.err
}

func TestHintingNarratorKeepsErrorChain(t *testing.T) {
	auth := &ai.AuthError{APIError: &ai.APIError{StatusCode: 401, Message: "Invalid API Key"}}
	h := &hintingNarrator{n: narrator.New(failingRuntime{err: auth}, narrator.Options{Model: "llama3-8b-8192"}), provider: ai.ProviderGroq}

	_, err := h.Narrate(context.Background(), "sales.csv", "prompt")
	require.Error(t, err)
	var ae *ai.AuthError
	assert.True(t, errors.As(err, &ae))
	assert.Contains(t, err.Error(), "AI analysis failed for sales.csv")
	assert.Contains(t, err.Error(), "hint:")
}
