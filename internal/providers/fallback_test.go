package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefbot/briefbot/internal/httpx"
)

func accessErr(status int, body string) error {
	return &httpx.TransportError{Message: fmt.Sprintf("http %d", status), Status: status, Body: body}
}

func TestIsAccessError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"verification required", accessErr(403, `{"error":"Your organization must be verified to use this model"}`), true},
		{"no access", accessErr(404, `{"error":"model not found"}`), true},
		{"model_not_found code", accessErr(400, `{"code":"model_not_found"}`), true},
		{"403 empty body", accessErr(403, ""), true},
		{"403 unrelated body", accessErr(403, `{"error":"rate exceeded"}`), false},
		{"500 with access text", accessErr(500, "does not have access"), false},
		{"plain error", errors.New("boom"), false},
		{"nil-ish transport", &httpx.TransportError{Message: "transport: EOF"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAccessError(tt.err))
		})
	}
}

func TestSearchWithFallbackWalksChain(t *testing.T) {
	var tried []string
	var persisted string
	call := func(_ context.Context, model string) (map[string]any, error) {
		tried = append(tried, model)
		if model == "grok-4" {
			return map[string]any{"ok": true}, nil
		}
		return nil, accessErr(403, "does not have access")
	}

	raw, used, err := searchWithFallback(context.Background(),
		[]string{"grok-4-fast", "grok-4-1-fast", "grok-4"},
		call, func(m string) { persisted = m })
	require.NoError(t, err)
	assert.Equal(t, "grok-4", used)
	assert.Equal(t, "grok-4", persisted)
	assert.Equal(t, true, raw["ok"])
	assert.Equal(t, []string{"grok-4-fast", "grok-4-1-fast", "grok-4"}, tried)
}

func TestSearchWithFallbackStopsOnHardError(t *testing.T) {
	var tried []string
	call := func(_ context.Context, model string) (map[string]any, error) {
		tried = append(tried, model)
		return nil, accessErr(500, "server exploded")
	}

	_, _, err := searchWithFallback(context.Background(), []string{"a", "b"}, call, nil)
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, tried, "non-access error must not advance the chain")
}

func TestSearchWithFallbackExhausted(t *testing.T) {
	call := func(_ context.Context, model string) (map[string]any, error) {
		return nil, accessErr(403, "")
	}
	_, _, err := searchWithFallback(context.Background(), []string{"a", "b"}, call, nil)
	require.Error(t, err)
	assert.True(t, IsAccessError(err), "last access error propagates for discovery")
}

func TestSearchWithFallbackSkipsBlanksAndRepeats(t *testing.T) {
	var tried []string
	call := func(_ context.Context, model string) (map[string]any, error) {
		tried = append(tried, model)
		return nil, accessErr(403, "")
	}
	_, _, _ = searchWithFallback(context.Background(), []string{"", "a", "a", "b"}, call, nil)
	assert.Equal(t, []string{"a", "b"}, tried)
}

func TestDedupeChain(t *testing.T) {
	chain := dedupeChain("grok-4-fast", "grok-4-fast", "grok-4", "", "grok-4")
	assert.Equal(t, []string{"grok-4-fast", "grok-4"}, chain)

	chain = dedupeChain("", "a", "b")
	assert.Equal(t, []string{"a", "b"}, chain)
}
