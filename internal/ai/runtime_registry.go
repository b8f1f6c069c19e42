package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(ctx context.Context, cfg RuntimeConfig) (Runtime, error)

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	// Common
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Hosted providers; BaseURL overrides the provider default.
	APIKey  string
	BaseURL string
	// Ollama
	Host string
	// Ark
	Model       string
	Region      string
	ArkAPIKey   string
	AccessKey   string
	SecretKey   string
	MaxTokens   int
	Temperature float64
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// Providers lists the registered provider names in sorted order.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewRuntime creates a Runtime for provider.
func NewRuntime(ctx context.Context, provider string, cfg RuntimeConfig) (Runtime, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "" {
		name = DefaultProvider
	}
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %s)", provider, strings.Join(Providers(), ", "))
	}
	return f(ctx, cfg)
}

func hostedFactory(defaultBase string) RuntimeFactory {
	return func(_ context.Context, c RuntimeConfig) (Runtime, error) {
		base := c.BaseURL
		if base == "" {
			base = defaultBase
		}
		return NewClient(ClientConfig{
			BaseURL:     base,
			APIKey:      c.APIKey,
			HTTPTimeout: c.HTTPTimeout,
			RetryMax:    c.RetryMax,
			BaseDelay:   c.BaseDelay,
			MaxDelay:    c.MaxDelay,
		}), nil
	}
}

// init registers built-in runtimes.
func init() {
	RegisterRuntime(ProviderGroq, hostedFactory(GroqBaseURL))
	RegisterRuntime(ProviderOpenRouter, hostedFactory(OpenRouterBaseURL))
	RegisterRuntime(ProviderOpenAI, hostedFactory(OpenAIBaseURL))
	RegisterRuntime(ProviderOllama, func(_ context.Context, c RuntimeConfig) (Runtime, error) {
		return NewOllamaClient(c.Host, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay), nil
	})
	RegisterRuntime(ProviderArk, func(ctx context.Context, c RuntimeConfig) (Runtime, error) {
		return NewArkRuntime(ctx, ArkConfig{
			BaseURL:     c.BaseURL,
			Region:      c.Region,
			APIKey:      c.ArkAPIKey,
			AccessKey:   c.AccessKey,
			SecretKey:   c.SecretKey,
			Model:       c.Model,
			MaxTokens:   c.MaxTokens,
			Temperature: c.Temperature,
		})
	})
}
