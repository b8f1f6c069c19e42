package ai

import "context"

// Runtime is implemented by every language model backend: the hosted
// OpenAI-compatible APIs, a local Ollama daemon and Volcengine Ark.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderGroq       = "groq"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderOllama     = "ollama"
	ProviderArk        = "ark"
)

// DefaultProvider is used when no provider is configured.
const DefaultProvider = ProviderGroq
