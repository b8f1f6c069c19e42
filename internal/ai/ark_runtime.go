package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DefaultArkBaseURL is the Volcengine Ark endpoint for the cn-beijing region.
const DefaultArkBaseURL = "https://ark.cn-beijing.volces.com/api/v3"

// ArkConfig selects an Ark endpoint and the model (endpoint ID) to run.
type ArkConfig struct {
	BaseURL     string
	Region      string
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	MaxTokens   int
	Temperature float64
}

// ArkRuntime adapts an eino chat model to the Runtime interface.
type ArkRuntime struct {
	chat  model.BaseChatModel
	model string
}

// NewArkRuntime builds an Ark chat model from cfg.
func NewArkRuntime(ctx context.Context, cfg ArkConfig) (*ArkRuntime, error) {
	if cfg.APIKey == "" && (cfg.AccessKey == "" || cfg.SecretKey == "") {
		return nil, errors.New("ark credentials missing: set ark_api_key, or ark_access_key and ark_secret_key")
	}
	if cfg.Model == "" {
		return nil, errors.New("ark model (endpoint id) cannot be empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultArkBaseURL
	}
	acfg := &ark.ChatModelConfig{
		BaseURL:   cfg.BaseURL,
		Region:    cfg.Region,
		APIKey:    cfg.APIKey,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Model:     cfg.Model,
	}
	if cfg.MaxTokens > 0 {
		mt := cfg.MaxTokens
		acfg.MaxTokens = &mt
	}
	if cfg.Temperature > 0 {
		t := float32(cfg.Temperature)
		acfg.Temperature = &t
	}
	cm, err := ark.NewChatModel(ctx, acfg)
	if err != nil {
		return nil, fmt.Errorf("create ark chat model: %w", err)
	}
	return NewArkRuntimeWithModel(cm, cfg.Model), nil
}

// NewArkRuntimeWithModel wraps an existing eino chat model.
func NewArkRuntimeWithModel(chat model.BaseChatModel, name string) *ArkRuntime {
	return &ArkRuntime{chat: chat, model: name}
}

func (r *ArkRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	var opts []model.Option
	if req.Model != "" && req.Model != r.model {
		opts = append(opts, model.WithModel(req.Model))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}
	msg, err := r.chat.Generate(ctx, toSchemaMessages(req.Messages), opts...)
	if err != nil {
		return nil, fmt.Errorf("ark generate: %w", err)
	}
	if msg == nil {
		return nil, errors.New("ark generate: empty message")
	}
	name := req.Model
	if name == "" {
		name = r.model
	}
	out := &GenerateResponse{
		Model:   name,
		Choices: []Choice{{Message: Message{Role: "assistant", Content: msg.Content}}},
	}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		u := msg.ResponseMeta.Usage
		out.Usage = Usage{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens, TotalTokens: u.TotalTokens}
	}
	return out, nil
}

func toSchemaMessages(msgs []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, schema.SystemMessage(m.Content))
		case "assistant":
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}
