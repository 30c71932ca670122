package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/briefbot/briefbot/internal/brief"
	"github.com/briefbot/briefbot/internal/httpx"
)

// LinkedInPost is one raw item parsed from the LinkedIn provider payload.
type LinkedInPost struct {
	Key        string
	Headline   string
	URL        string
	Author     string
	Role       string
	Dated      string
	Reactions  *int
	Comments   *int
	Topicality float64
	Rationale  string
}

func linkedinPrompt(topic, start, end string, counts ItemRange) string {
	return fmt.Sprintf(`You research professional discussion on LinkedIn.
Compress this topic into a 2-4 word search query, then search linkedin.com for posts about it.
Topic: %s
Prefer posts published between %s and %s. Target %d-%d posts.
Never include job listings.
Respond with ONLY a JSON object of this exact shape:
{"posts":[{"headline":"...","url":"https://www.linkedin.com/posts/...","author":"...","role":"author title","dated":"YYYY-MM-DD" or null,"reactions":0,"comments":0,"topicality":0.0-1.0,"rationale":"one short sentence"}]}`,
		topic, start, end, counts.Min, counts.Max)
}

// SearchLinkedIn queries the LLM web-search tool restricted to
// linkedin.com.
func (d Deps) SearchLinkedIn(ctx context.Context, apiKey, model, topic, start, end string, tier Tier, mock bool) (map[string]any, error) {
	if mock {
		return d.fixture("linkedin_sample.json")
	}
	prompt := linkedinPrompt(topic, start, end, tier.Counts(brief.ChannelLinkedIn))
	return d.searchOpenAITool(ctx, apiKey, model, prompt, []string{"linkedin.com"}, tier.Timeout(brief.ChannelLinkedIn))
}

// ParseLinkedIn extracts posts from the raw provider payload, rejecting
// job-listing URLs.
func ParseLinkedIn(raw map[string]any) []LinkedInPost {
	text := httpx.ExtractOutputText(raw)
	obj, ok := httpx.FirstJSONObjectWithKey(text, "posts")
	if !ok {
		return nil
	}
	entries, ok := obj["posts"].([]any)
	if !ok {
		return nil
	}
	var posts []LinkedInPost
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		post := LinkedInPost{
			Headline:   strings.TrimSpace(asString(m["headline"])),
			URL:        strings.TrimSpace(asString(m["url"])),
			Author:     strings.TrimSpace(asString(m["author"])),
			Role:       strings.TrimSpace(asString(m["role"])),
			Reactions:  asIntPtr(m["reactions"]),
			Comments:   asIntPtr(m["comments"]),
			Topicality: clamp01(asFloat(m["topicality"])),
			Rationale:  asString(m["rationale"]),
		}
		if post.Headline == "" || !strings.Contains(post.URL, "linkedin.com") {
			continue
		}
		if strings.Contains(post.URL, "/jobs/") || strings.Contains(post.URL, "/job/") {
			continue
		}
		if dated := strings.TrimSpace(asString(m["dated"])); isoDateRe.MatchString(dated) {
			post.Dated = dated
		}
		post.Key = fmt.Sprintf("LI-%02d", len(posts)+1)
		posts = append(posts, post)
	}
	return posts
}

// Signal converts the raw post into the unified model.
func (p LinkedInPost) Signal() brief.Signal {
	sig := brief.Signal{
		Key:        p.Key,
		Channel:    brief.ChannelLinkedIn,
		Headline:   p.Headline,
		URL:        p.URL,
		Byline:     p.Author,
		Dated:      p.Dated,
		Topicality: p.Topicality,
		Rationale:  p.Rationale,
		Interaction: brief.Interaction{
			Reactions: p.Reactions,
			Comments:  p.Comments,
		},
	}
	if p.Role != "" {
		sig.SetExtra("author_title", p.Role)
	}
	return sig
}
