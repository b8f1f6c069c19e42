package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Base URLs of the hosted OpenAI-compatible chat completion APIs.
const (
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OpenAIBaseURL     = "https://api.openai.com/v1"
)

// Client talks to any OpenAI-compatible /chat/completions endpoint.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	retry      retryPolicy
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Message Message `json:"message"`
}

type GenerateResponse struct {
	ID        string   `json:"id"`
	Model     string   `json:"model"`
	Choices   []Choice `json:"choices"`
	Usage     Usage    `json:"usage"`
	RequestID string   `json:"-"`
}

// Text returns the content of the first choice, or "" if there is none.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// ClientConfig configures an OpenAI-compatible client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewClient returns a client for cfg.BaseURL (Groq when empty).
func NewClient(cfg ClientConfig) *Client {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = GroqBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		apiKey:     cfg.APIKey,
		baseURL:    base,
		retry:      newRetryPolicy(cfg.RetryMax, cfg.BaseDelay, cfg.MaxDelay),
	}
}

// BaseURL reports the endpoint root the client posts to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"

	var out GenerateResponse
	err = c.retry.run(ctx, func() (attemptResult, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return attemptResult{}, fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")
		// OpenRouter uses these for attribution; other providers ignore them.
		httpReq.Header.Set("HTTP-Referer", "https://github.com/GauravPandit27/AI-Data-Analyst")
		httpReq.Header.Set("X-Title", "AI Data Analyst")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if isRetryableNetErr(err) {
				return attemptResult{retry: true}, fmt.Errorf("http request: %w", err)
			}
			var uerr *url.Error
			if errors.As(err, &uerr) && ctx.Err() == nil {
				return attemptResult{}, &UnreachableError{Host: c.baseURL, Err: err}
			}
			return attemptResult{}, fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := readAPIError(resp)
			typed := classifyAPIError(apiErr, resp)
			if !retryableStatus(resp.StatusCode) {
				return attemptResult{}, typed
			}
			return attemptResult{retry: true, wait: retryAfter(resp)}, typed
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return attemptResult{}, fmt.Errorf("decode response: %w", err)
		}
		out.RequestID = extractRequestID(resp)
		return attemptResult{}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
