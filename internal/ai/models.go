package ai

import (
	"encoding/json"
	"os"
	"sort"
)

// Model metadata used to warn when a prompt will not fit.
// Prices are illustrative; Groq and Ollama entries are free tier or local.

type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

// DefaultModel is the Groq model used when none is configured.
const DefaultModel = "llama3-8b-8192"

var models = map[string]ModelInfo{
	"llama3-8b-8192":          {Name: "llama3-8b-8192", Provider: ProviderGroq, ContextTokens: 8192},
	"llama3-70b-8192":         {Name: "llama3-70b-8192", Provider: ProviderGroq, ContextTokens: 8192, InputPerK: 0.00059, OutputPerK: 0.00079},
	"llama-3.1-8b-instant":    {Name: "llama-3.1-8b-instant", Provider: ProviderGroq, ContextTokens: 131072, InputPerK: 0.00005, OutputPerK: 0.00008},
	"llama-3.3-70b-versatile": {Name: "llama-3.3-70b-versatile", Provider: ProviderGroq, ContextTokens: 131072, InputPerK: 0.00059, OutputPerK: 0.00079},
	"mixtral-8x7b-32768":      {Name: "mixtral-8x7b-32768", Provider: ProviderGroq, ContextTokens: 32768, InputPerK: 0.00024, OutputPerK: 0.00024},
	"gemma2-9b-it":            {Name: "gemma2-9b-it", Provider: ProviderGroq, ContextTokens: 8192, InputPerK: 0.0002, OutputPerK: 0.0002},

	"meta-llama/llama-3.1-8b-instruct": {Name: "meta-llama/llama-3.1-8b-instruct", Provider: ProviderOpenRouter, ContextTokens: 131072, InputPerK: 0.00002, OutputPerK: 0.00005},
	"openai/gpt-4o-mini":               {Name: "openai/gpt-4o-mini", Provider: ProviderOpenRouter, ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},

	"gpt-4o-mini": {Name: "gpt-4o-mini", Provider: ProviderOpenAI, ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	"gpt-4o":      {Name: "gpt-4o", Provider: ProviderOpenAI, ContextTokens: 128000, InputPerK: 0.0025, OutputPerK: 0.01},

	"llama3:latest":  {Name: "llama3:latest", Provider: ProviderOllama, ContextTokens: 8192},
	"llama3.1:8b":    {Name: "llama3.1:8b", Provider: ProviderOllama, ContextTokens: 131072},
	"qwen2.5:7b":     {Name: "qwen2.5:7b", Provider: ProviderOllama, ContextTokens: 32768},
	"mistral:latest": {Name: "mistral:latest", Provider: ProviderOllama, ContextTokens: 32768},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// LoadCatalogFromJSON loads a JSON object map[string]ModelInfo from a file path.
// Example entry:
// { "llama3-8b-8192": {"Name":"llama3-8b-8192","Provider":"groq","ContextTokens":8192} }
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m map[string]ModelInfo
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// OverrideCatalog replaces the in-memory catalog entirely.
func OverrideCatalog(m map[string]ModelInfo) {
	if m == nil {
		return
	}
	models = m
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
		}
		models[k] = v
	}
}

// Catalog returns the catalog sorted by provider then name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, v := range models {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Name < out[j].Name
	})
	return out
}
