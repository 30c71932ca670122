package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/briefbot/briefbot/internal/brief"
	"github.com/briefbot/briefbot/internal/httpx"
)

// xaiFallbacks is tried after the caller-supplied model; when these are
// exhausted the live model list is consulted for untried grok-* ids.
var xaiFallbacks = []string{
	"grok-4-fast",
	"grok-4-1-fast",
	"grok-4-1-fast-non-reasoning",
	"grok-4",
}

// XPost is one raw item parsed from the X provider payload.
type XPost struct {
	Key       string
	Excerpt   string
	Link      string
	Handle    string
	Posted    string
	Likes     *int
	Reposts   *int
	Replies   *int
	Quotes    *int
	Relevance float64
	Reason    string
}

func xPrompt(topic, start, end string, counts ItemRange) string {
	return fmt.Sprintf(`Search X for posts about: %s
Prefer posts from %s to %s. Target %d-%d posts with real engagement metrics.
Respond with ONLY a JSON object of this exact shape:
{"posts":[{"excerpt":"...","link":"https://x.com/...","handle":"username","posted":"YYYY-MM-DD","metrics":{"likes":0,"reposts":0,"replies":0,"quotes":0},"signal":0.0-1.0,"reason":"one short sentence"}]}`,
		topic, start, end, counts.Min, counts.Max)
}

func xRequest(model, prompt string) map[string]any {
	return map[string]any{
		"model": model,
		"tools": []map[string]any{{"type": "x_search"}},
		"input": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}
}

// SearchX queries xAI's live search tool, with the model fallback chain
// extended by live discovery once hardcoded candidates are exhausted.
func (d Deps) SearchX(ctx context.Context, apiKey, model, topic, start, end string, tier Tier, mock bool) (map[string]any, error) {
	if mock {
		return d.fixture("xai_sample.json")
	}
	prompt := xPrompt(topic, start, end, tier.Counts(brief.ChannelX))
	timeout := tier.Timeout(brief.ChannelX)
	headers := map[string]string{"Authorization": "Bearer " + apiKey}
	call := func(ctx context.Context, candidate string) (map[string]any, error) {
		return d.Client.RequestJSON(ctx, "POST", xaiResponsesURL, headers, xRequest(candidate, prompt), timeout, 2)
	}
	persist := func(m string) {
		if d.Models != nil && m != model {
			d.Models.SetCachedModel("xai", m)
		}
	}

	chain := dedupeChain(model, xaiFallbacks...)
	raw, used, err := searchWithFallback(ctx, chain, call, persist)
	if err == nil {
		if used != model {
			d.Logger.Info().Str("requested", model).Str("used", used).Msg("xai model fallback engaged")
		}
		return raw, nil
	}
	if !IsAccessError(err) || d.Models == nil {
		return nil, fmt.Errorf("xai search: %w", err)
	}

	// Hardcoded chain exhausted: try whatever grok models the account
	// can actually list.
	discovered, derr := d.Models.DiscoverXAIModels(discoverCtx(ctx), apiKey)
	if derr != nil {
		return nil, fmt.Errorf("xai search: %w", err)
	}
	tried := map[string]bool{}
	for _, m := range chain {
		tried[m] = true
	}
	var extra []string
	for _, m := range discovered {
		if !tried[m] {
			extra = append(extra, m)
		}
	}
	raw, used, err = searchWithFallback(ctx, extra, call, persist)
	if err != nil {
		return nil, fmt.Errorf("xai search: %w", err)
	}
	d.Logger.Info().Str("used", used).Msg("xai discovered-model fallback engaged")
	return raw, nil
}

func discoverCtx(ctx context.Context) context.Context {
	if ctx.Err() != nil {
		return context.Background()
	}
	return ctx
}

// ParseX extracts posts from the raw provider payload.
func ParseX(raw map[string]any) []XPost {
	text := httpx.ExtractOutputText(raw)
	obj, ok := httpx.FirstJSONObjectWithKey(text, "posts")
	if !ok {
		return nil
	}
	entries, ok := obj["posts"].([]any)
	if !ok {
		return nil
	}
	var posts []XPost
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		post := XPost{
			Excerpt:   strings.TrimSpace(asString(m["excerpt"])),
			Link:      strings.TrimSpace(asString(m["link"])),
			Handle:    strings.TrimPrefix(strings.TrimSpace(asString(m["handle"])), "@"),
			Relevance: clamp01(asFloat(m["signal"])),
			Reason:    asString(m["reason"]),
		}
		if post.Excerpt == "" || post.Link == "" {
			continue
		}
		if posted := strings.TrimSpace(asString(m["posted"])); isoDateRe.MatchString(posted) {
			post.Posted = posted
		}
		if metrics, ok := m["metrics"].(map[string]any); ok {
			post.Likes = asIntPtr(metrics["likes"])
			post.Reposts = asIntPtr(metrics["reposts"])
			post.Replies = asIntPtr(metrics["replies"])
			post.Quotes = asIntPtr(metrics["quotes"])
		}
		post.Key = fmt.Sprintf("X%d", len(posts)+1)
		posts = append(posts, post)
	}
	return posts
}

// Signal converts the raw post into the unified model.
func (p XPost) Signal() brief.Signal {
	sig := brief.Signal{
		Key:        p.Key,
		Channel:    brief.ChannelX,
		Headline:   p.Excerpt,
		URL:        p.Link,
		Byline:     p.Handle,
		Dated:      p.Posted,
		Topicality: p.Relevance,
		Rationale:  p.Reason,
		Interaction: brief.Interaction{
			Likes:   p.Likes,
			Reposts: p.Reposts,
			Replies: p.Replies,
			Quotes:  p.Quotes,
		},
	}
	return sig
}
