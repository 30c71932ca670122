package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/briefbot/briefbot/internal/httpx"
)

const (
	openAIModelsURL = "https://api.openai.com/v1/models"
	xaiModelsURL    = "https://api.x.ai/v1/models"

	// XAIFallbackModel is the last-resort xAI identifier when neither
	// the preference list nor discovery yields a match.
	XAIFallbackModel = "grok-4-fast"
)

// Model policies.
const (
	PolicyPinned = "pinned"
	PolicyAuto   = "auto"
	PolicyLatest = "latest"
)

var (
	gptStandard = regexp.MustCompile(`^gpt-5(\.\d+)*$`)

	gptBlocklist = []string{"mini", "nano", "chat", "codex", "preview", "turbo", "experimental", "snapshot"}

	// xaiPreferred is tried in order before falling back to discovery.
	xaiPreferred = []string{
		"grok-4-fast",
		"grok-4-1-fast",
		"grok-4-1-fast-non-reasoning",
		"grok-4-fast-non-reasoning",
		"grok-4",
	}
)

// ModelInfo is one entry from a provider's model-listing endpoint.
type ModelInfo struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
}

// Selection is what callers feed the providers.
type Selection struct {
	OpenAI string `json:"openai,omitempty"`
	XAI    string `json:"xai,omitempty"`
}

type prefEntry struct {
	Model   string `json:"model"`
	SavedAt int64  `json:"saved_at"`
}

type prefFileShape struct {
	OpenAI *prefEntry `json:"openai,omitempty"`
	XAI    *prefEntry `json:"xai,omitempty"`
}

// ModelSelector resolves which model each provider family should use,
// persisting choices with a long TTL so discovery is rare.
type ModelSelector struct {
	client *httpx.Client
	store  *FileStore
	logger zerolog.Logger
}

// NewModelSelector builds a selector over the given file store.
func NewModelSelector(client *httpx.Client, store *FileStore, logger zerolog.Logger) *ModelSelector {
	return &ModelSelector{client: client, store: store, logger: logger}
}

func (ms *ModelSelector) prefPath() string {
	return filepath.Join(ms.store.Dir(), prefFile)
}

func (ms *ModelSelector) loadPrefs() prefFileShape {
	var prefs prefFileShape
	raw, err := os.ReadFile(ms.prefPath())
	if err != nil {
		return prefs
	}
	_ = json.Unmarshal(raw, &prefs)
	return prefs
}

// savePrefs is best-effort; a write failure never fails the run.
func (ms *ModelSelector) savePrefs(prefs prefFileShape) {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return
	}
	if err := ms.store.writeAtomic(ms.prefPath(), raw); err != nil {
		ms.logger.Debug().Err(err).Msg("model pref write failed")
	}
}

func fresh(entry *prefEntry) bool {
	return entry != nil && entry.Model != "" &&
		time.Since(time.Unix(entry.SavedAt, 0)) <= ModelPrefTTL
}

// SetCachedModel records a working model for a provider family. The call
// is idempotent; later runs read the persisted value.
func (ms *ModelSelector) SetCachedModel(family, model string) {
	if model == "" {
		return
	}
	prefs := ms.loadPrefs()
	entry := &prefEntry{Model: model, SavedAt: time.Now().Unix()}
	switch family {
	case "openai":
		prefs.OpenAI = entry
	case "xai":
		prefs.XAI = entry
	default:
		return
	}
	ms.savePrefs(prefs)
}

// ChooseOpenAI resolves the OpenAI model for a run. Policy "pinned"
// returns the pin; "auto" uses the cached choice when fresh, otherwise
// lists models, filters to standard GPT identifiers, and keeps the
// newest.
func (ms *ModelSelector) ChooseOpenAI(ctx context.Context, policy, pin, apiKey string, mockList []ModelInfo) (string, error) {
	if policy == PolicyPinned {
		if pin == "" {
			return "", fmt.Errorf("openai policy pinned but no pin supplied")
		}
		return pin, nil
	}
	prefs := ms.loadPrefs()
	if fresh(prefs.OpenAI) {
		return prefs.OpenAI.Model, nil
	}
	list := mockList
	if list == nil {
		var err error
		list, err = ms.listModels(ctx, openAIModelsURL, apiKey)
		if err != nil {
			return "", fmt.Errorf("list openai models: %w", err)
		}
	}
	candidates := filterStandardGPT(list)
	if len(candidates) == 0 {
		return "", fmt.Errorf("no standard gpt model in listing (%d entries)", len(list))
	}
	sortGPTCandidates(candidates)
	winner := candidates[0].ID
	ms.SetCachedModel("openai", winner)
	return winner, nil
}

// ChooseXAI resolves the xAI model. Policy "pinned" returns the pin;
// "latest" uses the cached choice when fresh, otherwise matches the
// listing against the ordered preference list, then any grok-4*, then
// the hardcoded fallback.
func (ms *ModelSelector) ChooseXAI(ctx context.Context, policy, pin, apiKey string, mockList []ModelInfo) (string, error) {
	if policy == PolicyPinned {
		if pin == "" {
			return "", fmt.Errorf("xai policy pinned but no pin supplied")
		}
		return pin, nil
	}
	prefs := ms.loadPrefs()
	if fresh(prefs.XAI) {
		return prefs.XAI.Model, nil
	}
	list := mockList
	if list == nil {
		var err error
		list, err = ms.listModels(ctx, xaiModelsURL, apiKey)
		if err != nil {
			return "", fmt.Errorf("list xai models: %w", err)
		}
	}
	winner := pickXAI(list)
	ms.SetCachedModel("xai", winner)
	return winner, nil
}

func pickXAI(list []ModelInfo) string {
	available := make(map[string]bool, len(list))
	for _, m := range list {
		available[m.ID] = true
	}
	for _, want := range xaiPreferred {
		if available[want] {
			return want
		}
	}
	var grok4 []string
	for _, m := range list {
		if strings.HasPrefix(m.ID, "grok-4") {
			grok4 = append(grok4, m.ID)
		}
	}
	if len(grok4) > 0 {
		sort.Strings(grok4)
		return grok4[0]
	}
	return XAIFallbackModel
}

// GetModels resolves both families given which credentials are present.
func (ms *ModelSelector) GetModels(ctx context.Context, openAIKey, xaiKey, openAIPolicy, openAIPin, xaiPolicy, xaiPin string, mockOpenAI, mockXAI []ModelInfo) (Selection, error) {
	var sel Selection
	if openAIKey != "" || mockOpenAI != nil {
		model, err := ms.ChooseOpenAI(ctx, openAIPolicy, openAIPin, openAIKey, mockOpenAI)
		if err != nil {
			return sel, err
		}
		sel.OpenAI = model
	}
	if xaiKey != "" || mockXAI != nil {
		model, err := ms.ChooseXAI(ctx, xaiPolicy, xaiPin, xaiKey, mockXAI)
		if err != nil {
			return sel, err
		}
		sel.XAI = model
	}
	return sel, nil
}

// DiscoverXAIModels fetches the live xAI model list, used by the X
// provider after its hardcoded fallbacks are exhausted.
func (ms *ModelSelector) DiscoverXAIModels(ctx context.Context, apiKey string) ([]string, error) {
	list, err := ms.listModels(ctx, xaiModelsURL, apiKey)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, m := range list {
		if strings.HasPrefix(m.ID, "grok-") {
			ids = append(ids, m.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (ms *ModelSelector) listModels(ctx context.Context, url, apiKey string) ([]ModelInfo, error) {
	headers := map[string]string{"Authorization": "Bearer " + apiKey}
	obj, err := ms.client.RequestJSON(ctx, "GET", url, headers, nil, 30*time.Second, 2)
	if err != nil {
		return nil, err
	}
	data, ok := obj["data"].([]any)
	if !ok {
		return nil, fmt.Errorf("model listing missing data array")
	}
	var list []ModelInfo
	for _, entry := range data {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		info := ModelInfo{}
		if id, ok := m["id"].(string); ok {
			info.ID = id
		}
		if created, ok := m["created"].(float64); ok {
			info.Created = int64(created)
		}
		if info.ID != "" {
			list = append(list, info)
		}
	}
	return list, nil
}

func filterStandardGPT(list []ModelInfo) []ModelInfo {
	var out []ModelInfo
	for _, m := range list {
		if !gptStandard.MatchString(m.ID) {
			continue
		}
		blocked := false
		for _, word := range gptBlocklist {
			if strings.Contains(m.ID, word) {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, m)
		}
	}
	return out
}

// sortGPTCandidates orders by version tuple descending, then created-at
// descending.
func sortGPTCandidates(list []ModelInfo) {
	sort.SliceStable(list, func(i, j int) bool {
		vi, vj := gptVersion(list[i].ID), gptVersion(list[j].ID)
		for k := 0; k < len(vi) || k < len(vj); k++ {
			a, b := 0, 0
			if k < len(vi) {
				a = vi[k]
			}
			if k < len(vj) {
				b = vj[k]
			}
			if a != b {
				return a > b
			}
		}
		return list[i].Created > list[j].Created
	})
}

func gptVersion(id string) []int {
	version := strings.TrimPrefix(id, "gpt-")
	parts := strings.Split(version, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		out = append(out, n)
	}
	return out
}
