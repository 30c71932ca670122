package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/briefbot/briefbot/internal/httpx"
	"github.com/briefbot/briefbot/internal/registry"
)

const (
	openAIResponsesURL = "https://api.openai.com/v1/responses"
	xaiResponsesURL    = "https://api.x.ai/v1/responses"
)

// openAIFallbacks is the chain tried after the caller-supplied model on
// access errors.
var openAIFallbacks = []string{"gpt-5.2", "gpt-5.1", "gpt-5"}

// Deps wires the providers to their collaborators; passing it explicitly
// keeps provider state out of globals.
type Deps struct {
	Client      *httpx.Client
	Models      *registry.ModelSelector
	Logger      zerolog.Logger
	FixturesDir string
}

// webToolRequest is the shared request body for the OpenAI web-search
// tool providers (Reddit, YouTube, LinkedIn).
func webToolRequest(model, prompt string, allowedDomains []string) map[string]any {
	return map[string]any{
		"model": model,
		"input": []map[string]any{
			{"role": "user", "content": prompt},
		},
		"tools": []map[string]any{
			{
				"type":    "web_search",
				"filters": map[string]any{"allowed_domains": allowedDomains},
			},
		},
		"temperature":       0.2,
		"max_output_tokens": 1200,
	}
}

// searchOpenAITool runs one web-search-tool request against the OpenAI
// responses API, walking the model fallback chain on access errors and
// persisting the survivor.
func (d Deps) searchOpenAITool(ctx context.Context, apiKey, model, prompt string, domains []string, timeout time.Duration) (map[string]any, error) {
	headers := map[string]string{"Authorization": "Bearer " + apiKey}
	call := func(ctx context.Context, candidate string) (map[string]any, error) {
		body := webToolRequest(candidate, prompt, domains)
		return d.Client.RequestJSON(ctx, "POST", openAIResponsesURL, headers, body, timeout, 2)
	}
	raw, used, err := searchWithFallback(ctx, dedupeChain(model, openAIFallbacks...), call, func(m string) {
		if d.Models != nil && m != model {
			d.Models.SetCachedModel("openai", m)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("openai web search: %w", err)
	}
	if used != model {
		d.Logger.Info().Str("requested", model).Str("used", used).Msg("model fallback engaged")
	}
	return raw, nil
}
