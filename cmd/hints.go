package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/ai"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/narrator"
)

// hintingNarrator appends a next step to provider errors the user can fix.
type hintingNarrator struct {
	n          *narrator.Narrator
	provider   string
	ollamaHost string
}

func (h *hintingNarrator) Narrate(ctx context.Context, fileName, prompt string) (*narrator.Narrative, error) {
	out, err := h.n.Narrate(ctx, fileName, prompt)
	if err != nil {
		if hint := errorHint(err, h.provider, h.n.Model(), h.ollamaHost); hint != "" {
			return nil, fmt.Errorf("%w (hint: %s)", err, hint)
		}
		return nil, err
	}
	return out, nil
}

func errorHint(err error, provider, model, ollamaHost string) string {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.Is(err, ai.ErrMissingAPIKey):
		return "export GROQ_API_KEY, add it to .env, or run 'dataanalyst config set api_key <key>'"
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama {
			return fmt.Sprintf("Ollama not reachable at %s; start it (see https://ollama.com) or set ollama_host", ollamaHost)
		}
		return "check your network and the provider base_url"
	case errors.As(err, &authErr):
		return "the API key was rejected; set GROQ_API_KEY or api_key in ~/.dataanalyst/config.yaml"
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Sprintf("rate limited, try again in ~%ds", int(rlErr.RetryAfter.Seconds()))
		}
		return "rate limited by provider, please retry"
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama {
			return fmt.Sprintf("install the model with 'ollama pull %s' or choose another", model)
		}
		return fmt.Sprintf("model %s is not available; see 'dataanalyst models show'", model)
	case errors.As(err, &qErr):
		return "quota or billing issue, check your provider account"
	case errors.As(err, &brErr):
		return "request invalid, try lowering max_tokens or pick a model with a larger context via --model"
	case errors.As(err, &sErr):
		return "provider appears unavailable, retry later"
	case errors.Is(err, narrator.ErrEmptyNarrative):
		return "try again or pick another model"
	}
	return ""
}
