// Package brief defines the unified content model: one Signal per
// discovered item and the Brief aggregate a research run produces.
package brief

import (
	"time"

	"github.com/briefbot/briefbot/internal/timeframe"
)

// Channel identifies a discovery source.
type Channel string

const (
	ChannelReddit   Channel = "reddit"
	ChannelX        Channel = "x"
	ChannelYouTube  Channel = "youtube"
	ChannelLinkedIn Channel = "linkedin"
	ChannelWeb      Channel = "web"
)

// Channels lists every discovery channel in presentation order.
func Channels() []Channel {
	return []Channel{ChannelReddit, ChannelX, ChannelYouTube, ChannelLinkedIn, ChannelWeb}
}

// Interaction carries per-item engagement metrics. Nil means the
// platform did not report the metric; zero is a real observation.
type Interaction struct {
	Upvotes   *int     `json:"upvotes,omitempty"`
	Comments  *int     `json:"comments,omitempty"`
	VoteRatio *float64 `json:"vote_ratio,omitempty"`
	Likes     *int     `json:"likes,omitempty"`
	Reposts   *int     `json:"reposts,omitempty"`
	Replies   *int     `json:"replies,omitempty"`
	Quotes    *int     `json:"quotes,omitempty"`
	Views     *int     `json:"views,omitempty"`
	Reactions *int     `json:"reactions,omitempty"`
	Bookmarks *int     `json:"bookmarks,omitempty"`
	Pulse     float64  `json:"pulse"`
}

// Empty reports whether no engagement metric carries a value.
func (in *Interaction) Empty() bool {
	if in == nil {
		return true
	}
	return in.Upvotes == nil && in.Comments == nil && in.VoteRatio == nil &&
		in.Likes == nil && in.Reposts == nil && in.Replies == nil &&
		in.Quotes == nil && in.Views == nil && in.Reactions == nil &&
		in.Bookmarks == nil
}

// Scorecard holds the four 0..100 subscores behind an item's rank.
type Scorecard struct {
	Topicality int `json:"topicality"`
	Freshness  int `json:"freshness"`
	Traction   int `json:"traction"`
	Trust      int `json:"trust"`
}

// ThreadNote is one selected comment excerpt from a Reddit thread.
type ThreadNote struct {
	Score   int    `json:"score"`
	Dated   string `json:"dated,omitempty"`
	Author  string `json:"author"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url,omitempty"`
}

// Signal is a single discovered item normalized into the unified model.
type Signal struct {
	Key            string               `json:"key"`
	Channel        Channel              `json:"channel"`
	Headline       string               `json:"headline"`
	URL            string               `json:"url"`
	Byline         string               `json:"byline,omitempty"`
	Blurb          string               `json:"blurb,omitempty"`
	Dated          string               `json:"dated,omitempty"`
	TimeConfidence timeframe.Confidence `json:"time_confidence"`
	Interaction    Interaction          `json:"interaction"`
	Topicality     float64              `json:"topicality"`
	Rationale      string               `json:"rationale,omitempty"`
	Rank           int                  `json:"rank"`
	Scorecard      Scorecard            `json:"scorecard"`
	ThreadNotes    []ThreadNote         `json:"thread_notes,omitempty"`
	Notables       []string             `json:"notables,omitempty"`
	Extras         map[string]string    `json:"extras,omitempty"`
}

// SetExtra records a channel-specific field, allocating the bag lazily.
func (s *Signal) SetExtra(key, value string) {
	if s.Extras == nil {
		s.Extras = map[string]string{}
	}
	s.Extras[key] = value
}

// Span is an inclusive ISO date window.
type Span struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Contains reports whether the ISO date falls inside the span.
func (sp Span) Contains(date string) bool {
	return date >= sp.Start && date <= sp.End
}

// Models records which model each provider family resolved to.
type Models struct {
	OpenAI string `json:"openai,omitempty"`
	XAI    string `json:"xai,omitempty"`
}

// Intent carries the query-classification diagnostics for a run.
type Intent struct {
	ComplexityClass     string   `json:"complexity_class"`
	ComplexityReason    string   `json:"complexity_reason"`
	EpistemicStance     string   `json:"epistemic_stance"`
	EpistemicReason     string   `json:"epistemic_reason"`
	Decomposition       []string `json:"decomposition,omitempty"`
	DecompositionSource string   `json:"decomposition_source,omitempty"`
}

// CacheInfo reports whether the brief was served from cache.
type CacheInfo struct {
	Enabled  bool    `json:"enabled"`
	AgeHours float64 `json:"age_hours,omitempty"`
}

// Metrics summarizes a run.
type Metrics struct {
	RunID          string  `json:"run_id"`
	SearchSeconds  float64 `json:"search_seconds"`
	ItemCount      int     `json:"item_count"`
}

// Brief is the aggregated output of a research run.
type Brief struct {
	Topic       string             `json:"topic"`
	Span        Span               `json:"span"`
	GeneratedAt time.Time          `json:"generated_at"`
	Mode        string             `json:"mode"`
	Models      Models             `json:"models"`
	Intent      Intent             `json:"intent"`
	Items       []Signal           `json:"items"`
	Errors      map[string]string  `json:"errors,omitempty"`
	Cache       CacheInfo          `json:"cache"`
	Metrics     Metrics            `json:"metrics"`
}

// ByChannel returns the items belonging to one channel, in brief order.
func (b *Brief) ByChannel(ch Channel) []Signal {
	var out []Signal
	for _, item := range b.Items {
		if item.Channel == ch {
			out = append(out, item)
		}
	}
	return out
}

func (b *Brief) Reddit() []Signal   { return b.ByChannel(ChannelReddit) }
func (b *Brief) X() []Signal        { return b.ByChannel(ChannelX) }
func (b *Brief) YouTube() []Signal  { return b.ByChannel(ChannelYouTube) }
func (b *Brief) LinkedIn() []Signal { return b.ByChannel(ChannelLinkedIn) }
func (b *Brief) Web() []Signal      { return b.ByChannel(ChannelWeb) }

// SetChannelError records a per-channel failure. Nil errors are ignored
// so callers can pass task results through unconditionally.
func (b *Brief) SetChannelError(ch Channel, err error) {
	if err == nil {
		return
	}
	if b.Errors == nil {
		b.Errors = map[string]string{}
	}
	b.Errors[string(ch)] = err.Error()
}

// IntPtr and FloatPtr build optional metric values.
func IntPtr(v int) *int             { return &v }
func FloatPtr(v float64) *float64   { return &v }
