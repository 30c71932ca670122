package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/briefbot/briefbot/internal/httpx"
)

// Statuses that can indicate a model-access problem when paired with a
// matching body.
var accessStatuses = map[int]bool{
	400: true, 401: true, 403: true, 404: true,
	409: true, 422: true, 429: true,
}

var accessPatterns = []string{
	"organization must be verified",
	"does not have access",
	"model not found",
	"not available for your account",
	"access denied",
	"verify your organization",
	"model_not_found",
}

// IsAccessError reports whether err looks like the API key lacking
// access to the requested model, which triggers the fallback chain
// rather than a hard failure.
func IsAccessError(err error) bool {
	var te *httpx.TransportError
	if !errors.As(err, &te) {
		return false
	}
	if !accessStatuses[te.Status] {
		return false
	}
	if te.Status == 403 && strings.TrimSpace(te.Body) == "" {
		return true
	}
	body := strings.ToLower(te.Body)
	for _, pattern := range accessPatterns {
		if strings.Contains(body, pattern) {
			return true
		}
	}
	return false
}

// searchWithFallback walks the candidate models in order, retrying only
// on access-type errors. On success the working model is reported
// through onSuccess (best-effort registry persistence). Non-access
// errors propagate immediately.
func searchWithFallback(ctx context.Context, candidates []string, call func(ctx context.Context, model string) (map[string]any, error), onSuccess func(model string)) (map[string]any, string, error) {
	var lastErr error
	tried := map[string]bool{}
	for _, model := range candidates {
		if model == "" || tried[model] {
			continue
		}
		tried[model] = true
		raw, err := call(ctx, model)
		if err == nil {
			if onSuccess != nil {
				onSuccess(model)
			}
			return raw, model, nil
		}
		if !IsAccessError(err) {
			return nil, "", err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no model candidates to try")
	}
	return nil, "", lastErr
}

// dedupeChain builds a candidate list starting with the caller-supplied
// model followed by the defaults, dropping blanks and repeats.
func dedupeChain(first string, rest ...string) []string {
	chain := make([]string, 0, len(rest)+1)
	seen := map[string]bool{}
	for _, m := range append([]string{first}, rest...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		chain = append(chain, m)
	}
	return chain
}
