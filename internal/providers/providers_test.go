package providers

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefbot/briefbot/internal/brief"
	"github.com/briefbot/briefbot/internal/timeframe"
)

func loadFixture(t *testing.T, name string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	var obj map[string]any
	require.NoError(t, json.Unmarshal(raw, &obj))
	return obj
}

func TestParseRedditFixture(t *testing.T) {
	threads := ParseReddit(loadFixture(t, "openai_sample.json"))
	require.Len(t, threads, 3, "off-platform URL is dropped")

	assert.Equal(t, "RDT-01", threads[0].Key)
	assert.Equal(t, "LocalLLaMA", threads[0].Forum, "r/ prefix stripped")
	assert.Equal(t, "2026-08-12", threads[0].Dated)
	assert.InDelta(t, 0.93, threads[0].Topicality, 0.001)

	assert.Equal(t, "RDT-03", threads[2].Key)
	assert.Empty(t, threads[2].Dated, "null date stays empty")

	sig := threads[0].Signal()
	assert.Equal(t, brief.ChannelReddit, sig.Channel)
	assert.Equal(t, "LocalLLaMA", sig.Extras["subreddit"])
}

func TestParseRedditTolerantOfGarbage(t *testing.T) {
	assert.Nil(t, ParseReddit(map[string]any{"output": "no json here"}))
	assert.Nil(t, ParseReddit(map[string]any{"output": `{"threads": "not a list"}`}))
	assert.Nil(t, ParseReddit(map[string]any{}))
}

func TestParseRedditClampsTopicality(t *testing.T) {
	raw := map[string]any{
		"output": `{"threads":[{"headline":"h","url":"https://www.reddit.com/r/a/comments/1/x/","topicality":3.5}]}`,
	}
	threads := ParseReddit(raw)
	require.Len(t, threads, 1)
	assert.Equal(t, 1.0, threads[0].Topicality)
}

func TestParseXFixture(t *testing.T) {
	posts := ParseX(loadFixture(t, "xai_sample.json"))
	require.Len(t, posts, 3)

	assert.Equal(t, "X1", posts[0].Key)
	assert.Equal(t, "mlops_daily", posts[0].Handle, "@ prefix stripped")
	require.NotNil(t, posts[0].Likes)
	assert.Equal(t, 412, *posts[0].Likes)

	// Partial metrics: absent keys stay nil.
	assert.Nil(t, posts[2].Reposts)
	require.NotNil(t, posts[2].Likes)
	assert.Equal(t, 67, *posts[2].Likes)

	sig := posts[0].Signal()
	assert.Equal(t, brief.ChannelX, sig.Channel)
	assert.Equal(t, "2026-08-18", sig.Dated)
	assert.False(t, sig.Interaction.Empty())
}

func TestParseYouTubeFixture(t *testing.T) {
	videos := ParseYouTube(loadFixture(t, "youtube_sample.json"))
	require.Len(t, videos, 2, "channel page URL is dropped")

	assert.Equal(t, "YT-01", videos[0].Key)
	require.NotNil(t, videos[0].Views)
	assert.Equal(t, 184233, *videos[0].Views)
	assert.Equal(t, "YT-02", videos[1].Key)
	assert.Contains(t, videos[1].URL, "youtu.be")
}

func TestBadYouTubeURL(t *testing.T) {
	tests := []struct {
		url string
		bad bool
	}{
		{"https://www.youtube.com/watch?v=abc", false},
		{"https://youtu.be/abc", false},
		{"https://www.youtube.com/playlist?list=PL1", true},
		{"https://www.youtube.com/channel/UC123", true},
		{"https://www.youtube.com/@creator", true},
		{"https://vimeo.com/12345", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.bad, badYouTubeURL(tt.url), tt.url)
	}
}

func TestParseLinkedInFixture(t *testing.T) {
	posts := ParseLinkedIn(loadFixture(t, "linkedin_sample.json"))
	require.Len(t, posts, 2, "job listing is dropped")

	assert.Equal(t, "LI-01", posts[0].Key)
	assert.Equal(t, "Sofia Mendel", posts[0].Author)

	sig := posts[0].Signal()
	assert.Equal(t, "VP Platform Engineering", sig.Extras["author_title"])
	require.NotNil(t, sig.Interaction.Reactions)
	assert.Equal(t, 842, *sig.Interaction.Reactions)
}

func TestProcessWebResults(t *testing.T) {
	results := []WebResult{
		{Title: "Kept", URL: "https://news.example.com/2026/08/10/llm-report", Snippet: "s", Relevance: 0.8},
		{Title: "Blocked host", URL: "https://www.reddit.com/r/a/comments/1/x/", Relevance: 0.9},
		{Title: "No URL", Relevance: 0.9},
		{Title: "Out of window", URL: "https://blog.example.com/2026/05/01/old-news", Relevance: 0.7},
		{Title: "Undated", URL: "https://example.org/analysis", Snippet: "no dates anywhere", Relevance: 0.5},
		{Title: "Provider date", URL: "https://example.net/report", Date: "2026-08-09", Relevance: 0.6},
	}
	signals := ProcessWebResults(results, "topic", "2026-08-01", "2026-08-14")
	require.Len(t, signals, 3)

	assert.Equal(t, "W-01", signals[0].Key)
	assert.Equal(t, "2026-08-10", signals[0].Dated)
	assert.Equal(t, timeframe.ConfidenceSolid, signals[0].TimeConfidence)
	assert.Equal(t, "news.example.com", signals[0].Extras["source_domain"])

	assert.Equal(t, "W-02", signals[1].Key)
	assert.Empty(t, signals[1].Dated)
	assert.Equal(t, timeframe.ConfidenceUnknown, signals[1].TimeConfidence)

	assert.Equal(t, "W-03", signals[2].Key)
	assert.Equal(t, "2026-08-09", signals[2].Dated)
	assert.Equal(t, timeframe.ConfidenceSoft, signals[2].TimeConfidence)
}

func TestSamplingCounts(t *testing.T) {
	assert.Equal(t, ItemRange{6, 14}, TierLite.Counts(brief.ChannelReddit))
	assert.Equal(t, ItemRange{18, 32}, TierStandard.Counts(brief.ChannelReddit))
	assert.Equal(t, ItemRange{14, 30}, TierStandard.Counts(brief.ChannelX))
	assert.Equal(t, ItemRange{12, 22}, TierStandard.Counts(brief.ChannelYouTube))
	assert.Equal(t, ItemRange{26, 74}, TierDense.Counts(brief.ChannelLinkedIn))
}

func TestSamplingTimeouts(t *testing.T) {
	assert.Less(t, TierLite.Timeout(brief.ChannelReddit), TierStandard.Timeout(brief.ChannelReddit))
	assert.Less(t, TierStandard.Timeout(brief.ChannelReddit), TierDense.Timeout(brief.ChannelReddit))
	assert.Less(t, TierStandard.Timeout(brief.ChannelReddit), TierStandard.Timeout(brief.ChannelX))
	assert.Less(t, TierStandard.Timeout(brief.ChannelX), TierStandard.Timeout(brief.ChannelYouTube))
}

func TestMockSearchesReadFixtures(t *testing.T) {
	d := Deps{Logger: zerolog.Nop(), FixturesDir: "testdata"}
	ctx := context.Background()

	raw, err := d.SearchReddit(ctx, "", "", "topic", "2026-08-01", "2026-08-14", TierStandard, true)
	require.NoError(t, err)
	assert.NotEmpty(t, ParseReddit(raw))

	raw, err = d.SearchX(ctx, "", "", "topic", "2026-08-01", "2026-08-14", TierStandard, true)
	require.NoError(t, err)
	assert.NotEmpty(t, ParseX(raw))

	raw, err = d.SearchYouTube(ctx, "", "", "topic", "2026-08-01", "2026-08-14", TierStandard, true)
	require.NoError(t, err)
	assert.NotEmpty(t, ParseYouTube(raw))

	raw, err = d.SearchLinkedIn(ctx, "", "", "topic", "2026-08-01", "2026-08-14", TierStandard, true)
	require.NoError(t, err)
	assert.NotEmpty(t, ParseLinkedIn(raw))
}

func TestMockWithoutFixturesDirFails(t *testing.T) {
	d := Deps{Logger: zerolog.Nop()}
	_, err := d.SearchReddit(context.Background(), "", "", "t", "2026-08-01", "2026-08-14", TierStandard, true)
	assert.Error(t, err)
}
