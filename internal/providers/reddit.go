package providers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/briefbot/briefbot/internal/brief"
	"github.com/briefbot/briefbot/internal/httpx"
)

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// RedditThread is one raw item parsed from the Reddit provider payload.
type RedditThread struct {
	Key        string
	Headline   string
	URL        string
	Forum      string
	Dated      string
	Topicality float64
	Rationale  string
}

func redditPrompt(topic, start, end string, counts ItemRange) string {
	return fmt.Sprintf(`You research Reddit discussions.
Compress this topic into a 2-4 word search query, then search reddit.com broadly for it.
Topic: %s
Prefer threads posted between %s and %s. Target %d-%d threads.
Respond with ONLY a JSON object of this exact shape:
{"threads":[{"headline":"...","url":"https://www.reddit.com/r/.../comments/...","forum":"subreddit","dated":"YYYY-MM-DD" or null,"topicality":0.0-1.0,"rationale":"one short sentence"}]}`,
		topic, start, end, counts.Min, counts.Max)
}

// SearchReddit queries the LLM web-search tool restricted to reddit.com.
func (d Deps) SearchReddit(ctx context.Context, apiKey, model, topic, start, end string, tier Tier, mock bool) (map[string]any, error) {
	if mock {
		return d.fixture("openai_sample.json")
	}
	prompt := redditPrompt(topic, start, end, tier.Counts(brief.ChannelReddit))
	return d.searchOpenAITool(ctx, apiKey, model, prompt, []string{"reddit.com"}, tier.Timeout(brief.ChannelReddit))
}

// ParseReddit extracts threads from the raw provider payload. Invalid
// entries are skipped; an empty result is a legitimate outcome.
func ParseReddit(raw map[string]any) []RedditThread {
	text := httpx.ExtractOutputText(raw)
	obj, ok := httpx.FirstJSONObjectWithKey(text, "threads")
	if !ok {
		return nil
	}
	entries, ok := obj["threads"].([]any)
	if !ok {
		return nil
	}
	var threads []RedditThread
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		thread := RedditThread{
			Headline:   asString(m["headline"]),
			URL:        strings.TrimSpace(asString(m["url"])),
			Forum:      strings.TrimPrefix(strings.TrimSpace(asString(m["forum"])), "r/"),
			Rationale:  asString(m["rationale"]),
			Topicality: clamp01(asFloat(m["topicality"])),
		}
		if thread.Headline == "" || !strings.Contains(thread.URL, "reddit.com") {
			continue
		}
		if dated := strings.TrimSpace(asString(m["dated"])); isoDateRe.MatchString(dated) {
			thread.Dated = dated
		}
		thread.Key = fmt.Sprintf("RDT-%02d", len(threads)+1)
		threads = append(threads, thread)
	}
	return threads
}

// Signal converts the raw thread into the unified model; time
// confidence is assigned by the pipeline once the span is known.
func (t RedditThread) Signal() brief.Signal {
	sig := brief.Signal{
		Key:        t.Key,
		Channel:    brief.ChannelReddit,
		Headline:   t.Headline,
		URL:        t.URL,
		Dated:      t.Dated,
		Topicality: t.Topicality,
		Rationale:  t.Rationale,
	}
	if t.Forum != "" {
		sig.SetExtra("subreddit", t.Forum)
	}
	return sig
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func asIntPtr(v any) *int {
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case int:
		i := n
		return &i
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
