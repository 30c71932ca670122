package intent

import (
	"context"
	"strings"
	"time"

	"github.com/briefbot/briefbot/internal/httpx"
)

const decomposeURL = "https://api.openai.com/v1/responses"

const decomposePrompt = `Break the research topic below into 3-5 focused sub-questions.
Respond with ONLY a JSON object: {"subquestions": ["...", "..."]}.

Topic: `

// DecomposeQuery asks the LLM to split a complex topic into
// sub-questions. Any failure silently returns an empty list with source
// "skipped"; decomposition is advisory only.
func DecomposeQuery(ctx context.Context, client *httpx.Client, topic, apiKey, model string, timeout time.Duration) ([]string, string) {
	if apiKey == "" || model == "" {
		return nil, "skipped"
	}
	body := map[string]any{
		"model": model,
		"input": []map[string]any{
			{"role": "user", "content": decomposePrompt + topic},
		},
		"temperature":       0.1,
		"max_output_tokens": 400,
	}
	headers := map[string]string{"Authorization": "Bearer " + apiKey}
	raw, err := client.RequestJSON(ctx, "POST", decomposeURL, headers, body, timeout, 1)
	if err != nil {
		return nil, "skipped"
	}
	text := httpx.ExtractOutputText(raw)
	obj, ok := httpx.FirstJSONObjectWithKey(text, "subquestions")
	if !ok {
		return nil, "skipped"
	}
	rawList, ok := obj["subquestions"].([]any)
	if !ok {
		return nil, "skipped"
	}
	var questions []string
	for _, q := range rawList {
		if s, ok := q.(string); ok && strings.TrimSpace(s) != "" {
			questions = append(questions, strings.TrimSpace(s))
		}
	}
	if len(questions) < 3 || len(questions) > 5 {
		return nil, "skipped"
	}
	return questions, "llm"
}
