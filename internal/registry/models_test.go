package registry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSelector(t *testing.T) *ModelSelector {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewModelSelector(nil, fs, zerolog.Nop())
}

func TestChooseOpenAIPinned(t *testing.T) {
	ms := newTestSelector(t)

	model, err := ms.ChooseOpenAI(context.Background(), PolicyPinned, "gpt-5.2", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "gpt-5.2", model)

	_, err = ms.ChooseOpenAI(context.Background(), PolicyPinned, "", "", nil)
	assert.Error(t, err)
}

func TestChooseOpenAIFiltersAndSorts(t *testing.T) {
	ms := newTestSelector(t)
	list := []ModelInfo{
		{ID: "gpt-4o", Created: 900},
		{ID: "gpt-5-mini", Created: 950},
		{ID: "gpt-5-chat-latest", Created: 960},
		{ID: "gpt-5", Created: 800},
		{ID: "gpt-5.1", Created: 850},
		{ID: "gpt-5.2", Created: 820},
		{ID: "dall-e-3", Created: 700},
	}
	model, err := ms.ChooseOpenAI(context.Background(), PolicyAuto, "", "sk-test", list)
	require.NoError(t, err)
	assert.Equal(t, "gpt-5.2", model, "highest version tuple wins over created-at")
}

func TestChooseOpenAICreatedBreaksTies(t *testing.T) {
	ms := newTestSelector(t)
	list := []ModelInfo{
		{ID: "gpt-5", Created: 100},
		{ID: "gpt-5", Created: 300},
	}
	model, err := ms.ChooseOpenAI(context.Background(), PolicyAuto, "", "sk-test", list)
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", model)
}

func TestChooseOpenAINoCandidate(t *testing.T) {
	ms := newTestSelector(t)
	list := []ModelInfo{
		{ID: "gpt-4o"},
		{ID: "gpt-5-nano"},
		{ID: "o4-mini"},
	}
	_, err := ms.ChooseOpenAI(context.Background(), PolicyAuto, "", "sk-test", list)
	assert.Error(t, err)
}

func TestChooseOpenAIUsesCachedChoice(t *testing.T) {
	ms := newTestSelector(t)
	ms.SetCachedModel("openai", "gpt-5.1")

	// Listing would pick gpt-5.3, but the fresh cached choice wins.
	model, err := ms.ChooseOpenAI(context.Background(), PolicyAuto, "", "sk-test",
		[]ModelInfo{{ID: "gpt-5.3"}})
	require.NoError(t, err)
	assert.Equal(t, "gpt-5.1", model)
}

func TestChooseXAIPreferenceOrder(t *testing.T) {
	ms := newTestSelector(t)
	list := []ModelInfo{
		{ID: "grok-4"},
		{ID: "grok-4-1-fast"},
		{ID: "grok-3"},
	}
	model, err := ms.ChooseXAI(context.Background(), PolicyLatest, "", "xai-test", list)
	require.NoError(t, err)
	assert.Equal(t, "grok-4-1-fast", model, "earlier preference entry wins")
}

func TestChooseXAIGrok4Alphabetical(t *testing.T) {
	ms := newTestSelector(t)
	list := []ModelInfo{
		{ID: "grok-4-turbo"},
		{ID: "grok-4-extra"},
		{ID: "grok-2"},
	}
	model, err := ms.ChooseXAI(context.Background(), PolicyLatest, "", "xai-test", list)
	require.NoError(t, err)
	assert.Equal(t, "grok-4-extra", model)
}

func TestChooseXAIFallbackConstant(t *testing.T) {
	ms := newTestSelector(t)
	model, err := ms.ChooseXAI(context.Background(), PolicyLatest, "", "xai-test",
		[]ModelInfo{{ID: "grok-2"}})
	require.NoError(t, err)
	assert.Equal(t, XAIFallbackModel, model)
}

func TestGetModelsSkipsMissingCredentials(t *testing.T) {
	ms := newTestSelector(t)
	sel, err := ms.GetModels(context.Background(), "", "", PolicyAuto, "", PolicyLatest, "", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, sel.OpenAI)
	assert.Empty(t, sel.XAI)
}

func TestGetModelsBothFamilies(t *testing.T) {
	ms := newTestSelector(t)
	sel, err := ms.GetModels(context.Background(), "sk-test", "xai-test",
		PolicyAuto, "", PolicyLatest, "",
		[]ModelInfo{{ID: "gpt-5"}},
		[]ModelInfo{{ID: "grok-4-fast"}})
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", sel.OpenAI)
	assert.Equal(t, "grok-4-fast", sel.XAI)
}

func TestSetCachedModelPersistsAcrossSelectors(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	first := NewModelSelector(nil, fs, zerolog.Nop())
	first.SetCachedModel("xai", "grok-4-1-fast")

	second := NewModelSelector(nil, fs, zerolog.Nop())
	model, err := second.ChooseXAI(context.Background(), PolicyLatest, "", "xai-test", nil)
	require.NoError(t, err)
	assert.Equal(t, "grok-4-1-fast", model)
}

func TestFilterStandardGPT(t *testing.T) {
	list := []ModelInfo{
		{ID: "gpt-5"},
		{ID: "gpt-5.1"},
		{ID: "gpt-5-mini"},
		{ID: "gpt-5-preview"},
		{ID: "gpt-5x"},
		{ID: "gpt-4.1"},
	}
	out := filterStandardGPT(list)
	ids := make([]string, len(out))
	for i, m := range out {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"gpt-5", "gpt-5.1"}, ids)
}
