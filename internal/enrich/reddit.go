// Package enrich overwrites Reddit signals with real engagement metrics
// from the public thread JSON endpoint and pulls out notable comments.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/briefbot/briefbot/internal/brief"
	"github.com/briefbot/briefbot/internal/httpx"
	"github.com/briefbot/briefbot/internal/timeframe"
)

const (
	maxThreadNotes   = 10
	maxNotables      = 6
	notableScanLimit = 24
	minNotableLen    = 28
	notableExcerpt   = 190
	sentenceSeekFrom = 70

	fetchTimeout = 20 * time.Second
)

var deletedAuthors = map[string]bool{"[deleted]": true, "[removed]": true}

// lowValue matches comment bodies that carry no insight on their own.
var lowValue = regexp.MustCompile(`^(yep|yes|no|nope|same|agreed|this|\+1|lol|lmao|haha+|ha+|exactly|true|facts|\[deleted\]|\[removed\])[.!]*$`)

// Enricher fetches thread JSON and rewrites signals in place.
type Enricher struct {
	client      *httpx.Client
	logger      zerolog.Logger
	fixturePath string
}

// New builds an Enricher. When fixturePath is non-empty every fetch
// reads that file instead of the network (mock mode).
func New(client *httpx.Client, logger zerolog.Logger, fixturePath string) *Enricher {
	return &Enricher{client: client, logger: logger, fixturePath: fixturePath}
}

// Enrich overwrites one Reddit signal's engagement, date, thread notes,
// and notables from the live thread. Failures are non-fatal: the signal
// passes through untouched and the error is returned for logging only.
func (e *Enricher) Enrich(ctx context.Context, sig *brief.Signal) error {
	if sig.Channel != brief.ChannelReddit || !strings.Contains(sig.URL, "reddit.com") {
		return nil
	}
	listing, err := e.fetchThread(ctx, sig.URL)
	if err != nil {
		return fmt.Errorf("fetch thread: %w", err)
	}
	submission, comments, err := splitListing(listing)
	if err != nil {
		return fmt.Errorf("thread shape: %w", err)
	}

	applySubmission(sig, submission)
	sig.ThreadNotes = topComments(comments)
	sig.Notables = extractNotables(comments)
	return nil
}

// fetchThread returns the two-element listing array Reddit serves for a
// thread.
func (e *Enricher) fetchThread(ctx context.Context, threadURL string) ([]any, error) {
	if e.fixturePath != "" {
		raw, err := os.ReadFile(e.fixturePath)
		if err != nil {
			return nil, err
		}
		var listing []any
		if err := json.Unmarshal(raw, &listing); err != nil {
			return nil, err
		}
		return listing, nil
	}
	obj, err := e.client.RequestJSON(ctx, "GET", httpx.RedditJSONURL(threadURL), nil, nil, fetchTimeout, 2)
	if err != nil {
		return nil, err
	}
	// The thread endpoint returns a top-level array, which RequestJSON
	// wraps under "data".
	listing, ok := obj["data"].([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected thread payload")
	}
	return listing, nil
}

func splitListing(listing []any) (map[string]any, []map[string]any, error) {
	if len(listing) < 2 {
		return nil, nil, fmt.Errorf("listing has %d elements", len(listing))
	}
	submission := firstChildData(listing[0])
	if submission == nil {
		return nil, nil, fmt.Errorf("no submission child")
	}
	var comments []map[string]any
	for _, child := range childrenOf(listing[1]) {
		kind, _ := child["kind"].(string)
		if kind != "t1" {
			continue
		}
		if data, ok := child["data"].(map[string]any); ok {
			comments = append(comments, data)
		}
	}
	return submission, comments, nil
}

func childrenOf(v any) []map[string]any {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	data, ok := obj["data"].(map[string]any)
	if !ok {
		return nil
	}
	rawChildren, ok := data["children"].([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, c := range rawChildren {
		if m, ok := c.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func firstChildData(v any) map[string]any {
	children := childrenOf(v)
	if len(children) == 0 {
		return nil
	}
	data, _ := children[0]["data"].(map[string]any)
	return data
}

// applySubmission overwrites the signal's engagement with what Reddit
// actually reports.
func applySubmission(sig *brief.Signal, submission map[string]any) {
	if score, ok := submission["score"].(float64); ok {
		sig.Interaction.Upvotes = brief.IntPtr(int(score))
	}
	if comments, ok := submission["num_comments"].(float64); ok {
		sig.Interaction.Comments = brief.IntPtr(int(comments))
	}
	if ratio, ok := submission["upvote_ratio"].(float64); ok {
		sig.Interaction.VoteRatio = brief.FloatPtr(ratio)
	}
	if created, ok := submission["created_utc"].(float64); ok {
		if date, ok := timeframe.ToISODate(int64(created)); ok {
			sig.Dated = date
		}
	}
}

type scoredComment struct {
	data  map[string]any
	score int
}

func sortedComments(comments []map[string]any) []scoredComment {
	out := make([]scoredComment, 0, len(comments))
	for _, c := range comments {
		author, _ := c["author"].(string)
		if deletedAuthors[author] {
			continue
		}
		score := 0
		if s, ok := c["score"].(float64); ok {
			score = int(s)
		}
		out = append(out, scoredComment{data: c, score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}

func topComments(comments []map[string]any) []brief.ThreadNote {
	var notes []brief.ThreadNote
	for _, c := range sortedComments(comments) {
		if len(notes) >= maxThreadNotes {
			break
		}
		body, _ := c.data["body"].(string)
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		author, _ := c.data["author"].(string)
		note := brief.ThreadNote{
			Score:   c.score,
			Author:  author,
			Excerpt: excerpt(body, notableExcerpt),
		}
		if created, ok := c.data["created_utc"].(float64); ok {
			if date, ok := timeframe.ToISODate(int64(created)); ok {
				note.Dated = date
			}
		}
		if permalink, _ := c.data["permalink"].(string); permalink != "" {
			note.URL = "https://www.reddit.com" + permalink
		}
		notes = append(notes, note)
	}
	return notes
}

// extractNotables scans the top comments for substantive excerpts.
func extractNotables(comments []map[string]any) []string {
	sorted := sortedComments(comments)
	if len(sorted) > notableScanLimit {
		sorted = sorted[:notableScanLimit]
	}
	var notables []string
	for _, c := range sorted {
		if len(notables) >= maxNotables {
			break
		}
		body, _ := c.data["body"].(string)
		body = strings.TrimSpace(body)
		if len(body) < minNotableLen {
			continue
		}
		if lowValue.MatchString(strings.ToLower(body)) {
			continue
		}
		notables = append(notables, excerpt(body, notableExcerpt))
	}
	return notables
}

// excerpt truncates body to limit bytes, preferring a sentence boundary
// at or after sentenceSeekFrom. The cut never splits a UTF-8 rune.
func excerpt(body string, limit int) string {
	body = strings.Join(strings.Fields(body), " ")
	if len(body) <= limit {
		return body
	}
	for limit > 0 && !utf8.RuneStart(body[limit]) {
		limit--
	}
	cut := body[:limit]
	if i := strings.LastIndexAny(cut[sentenceSeekFrom:], ".!?"); i >= 0 {
		return strings.TrimSpace(cut[:sentenceSeekFrom+i+1])
	}
	if i := strings.LastIndex(cut, " "); i > sentenceSeekFrom {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}
