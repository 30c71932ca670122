// Package intent classifies a research topic so the pipeline can weight
// channels by what kind of answer the user is after.
package intent

import (
	"strings"

	"github.com/briefbot/briefbot/internal/brief"
)

// Complexity classes.
const (
	BroadExploratory  = "BROAD_EXPLORATORY"
	ComplexAnalytical = "COMPLEX_ANALYTICAL"
)

// Epistemic stances.
const (
	StanceHowTo        = "HOW_TO_TUTORIAL"
	StanceTrending     = "TRENDING_BREAKING"
	StanceExperiential = "EXPERIENTIAL_OPINION"
	StanceFactual      = "FACTUAL_TEMPORAL"
	StanceBalanced     = "BALANCED"
)

var broadCues = []string{"news", "updates", "trends", "trend", "overview", "what's new"}

var analyticalCues = []string{
	"why", "how", "despite", "because", "impact", "effect", "cause",
	"barrier", "replace", "replacing", "adoption", "versus", "vs",
	"compare", "difference", "tradeoff",
}

var clauseJoins = []string{" and ", " but ", " while ", " despite "}

// ClassifyComplexity labels the topic as broad-exploratory or
// complex-analytical and explains why.
func ClassifyComplexity(topic string) (string, string) {
	lower := strings.ToLower(strings.TrimSpace(topic))
	words := strings.Fields(lower)

	if len(words) <= 2 {
		return BroadExploratory, "short query (2 words or fewer)"
	}
	for _, cue := range broadCues {
		if strings.Contains(lower, cue) {
			return BroadExploratory, "broad cue: " + cue
		}
	}
	if strings.Contains(lower, "?") {
		for _, join := range clauseJoins {
			if strings.Contains(lower, join) {
				return ComplexAnalytical, "multi-clause question"
			}
		}
	}
	for _, cue := range analyticalCues {
		if containsWord(words, cue) {
			return ComplexAnalytical, "analytical cue: " + cue
		}
	}
	return BroadExploratory, "default"
}

func containsWord(words []string, want string) bool {
	for _, w := range words {
		if strings.Trim(w, "?.,!:;") == want {
			return true
		}
	}
	return false
}

type stanceRule struct {
	stance string
	cues   []string
}

// Rule order matters: the first matching stance wins.
var stanceRules = []stanceRule{
	{StanceHowTo, []string{"how to", "tutorial", "guide", "steps", "walkthrough", "install", "setup", "build"}},
	{StanceTrending, []string{"breaking", "latest", "today", "this week", "right now", "news", "now", "live"}},
	{StanceExperiential, []string{"opinion", "sentiment", "community", "what do people think", "hot take", "reddit", "x"}},
	{StanceFactual, []string{"why", "when", "where", "facts", "data", "statistics", "spec", "documentation", "technical", "price", "policy"}},
}

// ClassifyStance labels the topic's epistemic stance.
func ClassifyStance(topic string) (string, string) {
	lower := strings.ToLower(strings.TrimSpace(topic))
	words := strings.Fields(lower)
	for _, rule := range stanceRules {
		for _, cue := range rule.cues {
			matched := false
			if strings.Contains(cue, " ") {
				matched = strings.Contains(lower, cue)
			} else {
				matched = containsWord(words, cue)
			}
			if matched {
				return rule.stance, "cue: " + cue
			}
		}
	}
	return StanceBalanced, "no stance cue"
}

// stanceWeightTable gives per-channel multipliers applied to final
// ranks. BALANCED leaves everything at 1.0.
var stanceWeightTable = map[string]map[brief.Channel]float64{
	StanceHowTo: {
		brief.ChannelReddit:   1.05,
		brief.ChannelX:        0.85,
		brief.ChannelYouTube:  1.20,
		brief.ChannelLinkedIn: 0.90,
		brief.ChannelWeb:      1.10,
	},
	StanceTrending: {
		brief.ChannelReddit:   1.00,
		brief.ChannelX:        1.25,
		brief.ChannelYouTube:  0.90,
		brief.ChannelLinkedIn: 0.85,
		brief.ChannelWeb:      1.05,
	},
	StanceExperiential: {
		brief.ChannelReddit:   1.25,
		brief.ChannelX:        1.10,
		brief.ChannelYouTube:  0.95,
		brief.ChannelLinkedIn: 0.90,
		brief.ChannelWeb:      0.85,
	},
	StanceFactual: {
		brief.ChannelReddit:   0.95,
		brief.ChannelX:        0.90,
		brief.ChannelYouTube:  0.95,
		brief.ChannelLinkedIn: 1.05,
		brief.ChannelWeb:      1.20,
	},
}

// StanceWeights returns the channel multipliers for a stance.
func StanceWeights(stance string) map[brief.Channel]float64 {
	weights := map[brief.Channel]float64{}
	for _, ch := range brief.Channels() {
		weights[ch] = 1.0
	}
	for ch, w := range stanceWeightTable[stance] {
		weights[ch] = w
	}
	return weights
}
