package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/briefbot/briefbot/internal/brief"
	"github.com/briefbot/briefbot/internal/httpx"
)

// YouTubeVideo is one raw item parsed from the YouTube provider payload.
type YouTubeVideo struct {
	Key         string
	Headline    string
	URL         string
	ChannelName string
	Description string
	Dated       string
	Views       *int
	Likes       *int
	Topicality  float64
	Rationale   string
}

func youtubePrompt(topic, start, end string, counts ItemRange) string {
	return fmt.Sprintf(`You research YouTube coverage.
Compress this topic into a 2-4 word search query, then search youtube.com for actual videos about it.
Topic: %s
Prefer videos published between %s and %s. Target %d-%d videos.
Only include direct video URLs (youtube.com/watch or youtu.be); never playlists, channels, or handles.
Respond with ONLY a JSON object of this exact shape:
{"videos":[{"headline":"...","url":"https://www.youtube.com/watch?v=...","channel_name":"...","description":"...","dated":"YYYY-MM-DD" or null,"views":0,"likes":0,"topicality":0.0-1.0,"rationale":"one short sentence"}]}`,
		topic, start, end, counts.Min, counts.Max)
}

// SearchYouTube queries the LLM web-search tool restricted to YouTube
// domains.
func (d Deps) SearchYouTube(ctx context.Context, apiKey, model, topic, start, end string, tier Tier, mock bool) (map[string]any, error) {
	if mock {
		return d.fixture("youtube_sample.json")
	}
	prompt := youtubePrompt(topic, start, end, tier.Counts(brief.ChannelYouTube))
	return d.searchOpenAITool(ctx, apiKey, model, prompt, []string{"youtube.com", "youtu.be"}, tier.Timeout(brief.ChannelYouTube))
}

func badYouTubeURL(url string) bool {
	if !strings.Contains(url, "youtube.com") && !strings.Contains(url, "youtu.be") {
		return true
	}
	for _, frag := range []string{"/playlist", "/channel/", "/@"} {
		if strings.Contains(url, frag) {
			return true
		}
	}
	return false
}

// ParseYouTube extracts videos from the raw provider payload.
func ParseYouTube(raw map[string]any) []YouTubeVideo {
	text := httpx.ExtractOutputText(raw)
	obj, ok := httpx.FirstJSONObjectWithKey(text, "videos")
	if !ok {
		return nil
	}
	entries, ok := obj["videos"].([]any)
	if !ok {
		return nil
	}
	var videos []YouTubeVideo
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		video := YouTubeVideo{
			Headline:    strings.TrimSpace(asString(m["headline"])),
			URL:         strings.TrimSpace(asString(m["url"])),
			ChannelName: strings.TrimSpace(asString(m["channel_name"])),
			Description: asString(m["description"]),
			Views:       asIntPtr(m["views"]),
			Likes:       asIntPtr(m["likes"]),
			Topicality:  clamp01(asFloat(m["topicality"])),
			Rationale:   asString(m["rationale"]),
		}
		if video.Headline == "" || badYouTubeURL(video.URL) {
			continue
		}
		if dated := strings.TrimSpace(asString(m["dated"])); isoDateRe.MatchString(dated) {
			video.Dated = dated
		}
		video.Key = fmt.Sprintf("YT-%02d", len(videos)+1)
		videos = append(videos, video)
	}
	return videos
}

// Signal converts the raw video into the unified model.
func (v YouTubeVideo) Signal() brief.Signal {
	sig := brief.Signal{
		Key:        v.Key,
		Channel:    brief.ChannelYouTube,
		Headline:   v.Headline,
		URL:        v.URL,
		Byline:     v.ChannelName,
		Blurb:      v.Description,
		Dated:      v.Dated,
		Topicality: v.Topicality,
		Rationale:  v.Rationale,
		Interaction: brief.Interaction{
			Views: v.Views,
			Likes: v.Likes,
		},
	}
	return sig
}
