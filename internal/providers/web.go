package providers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/briefbot/briefbot/internal/brief"
	"github.com/briefbot/briefbot/internal/timeframe"
)

// WebResult is a pre-fetched generic web-search result supplied by the
// caller; the web channel performs no network I/O of its own.
type WebResult struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet"`
	Date      string  `json:"date,omitempty"`
	Relevance float64 `json:"relevance,omitempty"`
}

// blockedWebHosts are hosts whose content already flows through a
// dedicated channel.
var blockedWebHosts = map[string]bool{
	"reddit.com":       true,
	"www.reddit.com":   true,
	"old.reddit.com":   true,
	"twitter.com":      true,
	"www.twitter.com":  true,
	"x.com":            true,
	"www.x.com":        true,
	"youtube.com":      true,
	"www.youtube.com":  true,
	"youtu.be":         true,
	"linkedin.com":     true,
	"www.linkedin.com": true,
}

// ProcessWebResults normalizes caller-supplied web results: blocked
// hosts are dropped, dates are detected, and items outside the window
// are hard-dropped.
func ProcessWebResults(results []WebResult, topic, start, end string) []brief.Signal {
	var signals []brief.Signal
	for _, r := range results {
		rawURL := strings.TrimSpace(r.URL)
		if rawURL == "" {
			continue
		}
		host := hostOf(rawURL)
		if host == "" || blockedWebHosts[host] {
			continue
		}
		dated, confidence := timeframe.DetectDate(rawURL, r.Snippet, r.Title)
		if dated == "" && r.Date != "" {
			if t := timeframe.ParseMoment(r.Date); t != nil {
				dated = t.Format(timeframe.ISODate)
				confidence = timeframe.ConfidenceSoft
			}
		}
		// Dated items outside the window never make the brief.
		if dated != "" && (dated < start || dated > end) {
			continue
		}
		sig := brief.Signal{
			Key:            fmt.Sprintf("W-%02d", len(signals)+1),
			Channel:        brief.ChannelWeb,
			Headline:       strings.TrimSpace(r.Title),
			URL:            rawURL,
			Blurb:          strings.TrimSpace(r.Snippet),
			Dated:          dated,
			TimeConfidence: confidence,
			Topicality:     clamp01(r.Relevance),
		}
		if dated == "" {
			sig.TimeConfidence = timeframe.ConfidenceUnknown
		}
		sig.SetExtra("source_domain", host)
		signals = append(signals, sig)
	}
	return signals
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
