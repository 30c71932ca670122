// Package rank turns normalized signals into 0..100 ranks: per-channel
// interaction composites, percentile normalization across each batch, a
// weighted geometric combine, and trust adjustments.
package rank

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/briefbot/briefbot/internal/brief"
	"github.com/briefbot/briefbot/internal/timeframe"
)

// Subscore weights for platform channels and for web results.
var (
	platformWeights = map[string]float64{
		"topicality": 0.38,
		"freshness":  0.27,
		"traction":   0.23,
		"trust":      0.12,
	}
	webWeights = struct{ topicality, freshness, trust float64 }{0.52, 0.33, 0.15}
)

// Trust bases and adjustments.
var trustBase = map[brief.Channel]float64{
	brief.ChannelReddit:   61,
	brief.ChannelX:        53,
	brief.ChannelYouTube:  59,
	brief.ChannelLinkedIn: 66,
	brief.ChannelWeb:      49,
}

const (
	trustSolidBonus     = 6
	trustWeakPenalty    = 5
	trustUnknownPenalty = 10

	tractionFallback    = 42.0
	missingPulsePenalty = 7
	weakDatePenalty     = 5
	unknownDatePenalty  = 9

	webSourcePenalty  = 6
	webSolidBonus     = 5
	webWeakPenalty    = 9
	webUnknownPenalty = 13

	recencyWindowDays = 30
)

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func scale(v *int) float64 {
	if v == nil || *v <= 0 {
		return 0
	}
	return math.Sqrt(float64(*v))
}

// Pulse computes the per-channel interaction composite.
func Pulse(ch brief.Channel, in *brief.Interaction) float64 {
	if in == nil {
		return 0
	}
	switch ch {
	case brief.ChannelReddit:
		ratio := 0.55
		if in.VoteRatio != nil {
			ratio = clamp(*in.VoteRatio, 0, 1)
		}
		return 0.40*scale(in.Upvotes) + 0.40*scale(in.Comments) + 0.20*(ratio*10)
	case brief.ChannelX:
		return 0.46*scale(in.Likes) + 0.26*scale(in.Replies) + 0.16*scale(in.Reposts) + 0.12*scale(in.Quotes)
	case brief.ChannelYouTube:
		return 0.68*scale(in.Views) + 0.32*scale(in.Likes)
	case brief.ChannelLinkedIn:
		return 0.62*scale(in.Reactions) + 0.38*scale(in.Comments)
	default:
		return 0
	}
}

// Trust computes an item's trust subscore from its channel base and the
// confidence of its date.
func Trust(sig *brief.Signal) float64 {
	score := trustBase[sig.Channel]
	switch sig.TimeConfidence {
	case timeframe.ConfidenceSolid:
		score += trustSolidBonus
	case timeframe.ConfidenceWeak:
		score -= trustWeakPenalty
	case timeframe.ConfidenceUnknown:
		score -= trustUnknownPenalty
	}
	return clamp(score, 0, 100)
}

// Percentiles maps each value to its percentile position within the
// batch. Nil values take the supplied fallback. Equal inputs receive
// equal percentiles, so the mapping is monotone.
func Percentiles(values []*float64, fallback float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	filled := make([]float64, n)
	for i, v := range values {
		if v == nil {
			filled[i] = fallback
		} else {
			filled[i] = *v
		}
	}
	sorted := append([]float64(nil), filled...)
	sort.Float64s(sorted)
	denom := float64(n - 1)
	if denom < 1 {
		denom = 1
	}
	for i, v := range filled {
		// Rank by count of strictly smaller values; ties share a rank.
		idx := sort.SearchFloat64s(sorted, v)
		out[i] = float64(idx) / denom * 100
	}
	return out
}

// geometricCombine folds subscores through a weighted geometric mean.
// One bad dimension hurts more here than it would in an arithmetic mean.
func geometricCombine(parts map[string]float64, weights map[string]float64) float64 {
	var product, totalWeight float64 = 1, 0
	for name, w := range weights {
		v := math.Max(1, parts[name])
		product *= math.Pow(v, w)
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return math.Pow(product, 1/totalWeight)
}

// ScorePlatform ranks a single channel's batch in place: percentile
// normalization of topicality, freshness, and traction, geometric
// combine with trust, then interaction and date adjustments.
func ScorePlatform(items []brief.Signal) {
	n := len(items)
	if n == 0 {
		return
	}
	topicality := make([]*float64, n)
	freshness := make([]*float64, n)
	traction := make([]*float64, n)
	hadPulse := make([]bool, n)

	for i := range items {
		t := clamp(items[i].Topicality, 0, 1) * 100
		topicality[i] = &t
		f := timeframe.RecencyScore(items[i].Dated, recencyWindowDays)
		freshness[i] = &f
		if items[i].Interaction.Empty() {
			traction[i] = nil
		} else {
			p := Pulse(items[i].Channel, &items[i].Interaction)
			items[i].Interaction.Pulse = p
			traction[i] = &p
			hadPulse[i] = true
		}
	}

	topicalityPct := Percentiles(topicality, 0)
	freshnessPct := Percentiles(freshness, 0)
	tractionPct := Percentiles(traction, tractionFallback)

	for i := range items {
		trust := Trust(&items[i])
		parts := map[string]float64{
			"topicality": topicalityPct[i],
			"freshness":  freshnessPct[i],
			"traction":   tractionPct[i],
			"trust":      trust,
		}
		score := geometricCombine(parts, platformWeights)
		if !hadPulse[i] {
			score -= missingPulsePenalty
		}
		switch items[i].TimeConfidence {
		case timeframe.ConfidenceWeak:
			score -= weakDatePenalty
		case timeframe.ConfidenceUnknown:
			score -= unknownDatePenalty
		}
		items[i].Rank = int(math.Round(clamp(score, 0, 100)))
		items[i].Scorecard = brief.Scorecard{
			Topicality: int(math.Round(topicalityPct[i])),
			Freshness:  int(math.Round(freshnessPct[i])),
			Traction:   int(math.Round(tractionPct[i])),
			Trust:      int(math.Round(trust)),
		}
	}
}

// ScoreWeb ranks web results with the flat weighted sum and its date
// adjustments.
func ScoreWeb(items []brief.Signal) {
	for i := range items {
		topicality := clamp(items[i].Topicality, 0, 1) * 100
		freshness := timeframe.RecencyScore(items[i].Dated, recencyWindowDays)
		trust := Trust(&items[i])

		total := webWeights.topicality*topicality + webWeights.freshness*freshness + webWeights.trust*trust
		total -= webSourcePenalty
		switch items[i].TimeConfidence {
		case timeframe.ConfidenceSolid:
			total += webSolidBonus
		case timeframe.ConfidenceWeak:
			total -= webWeakPenalty
		case timeframe.ConfidenceUnknown:
			total -= webUnknownPenalty
		}
		items[i].Rank = int(math.Round(clamp(total, 0, 100)))
		items[i].Scorecard = brief.Scorecard{
			Topicality: int(math.Round(topicality)),
			Freshness:  int(math.Round(freshness)),
			Traction:   0,
			Trust:      int(math.Round(trust)),
		}
	}
}

// ApplyStanceWeights multiplies each item's rank by its channel's
// stance multiplier, recording the weight when it deviates from 1.
func ApplyStanceWeights(items []brief.Signal, weights map[brief.Channel]float64) {
	for i := range items {
		w, ok := weights[items[i].Channel]
		if !ok || w == 1.0 {
			continue
		}
		items[i].Rank = int(math.Round(clamp(float64(items[i].Rank)*w, 0, 100)))
		items[i].SetExtra("stance_weight", trimFloat(w))
	}
}

func trimFloat(v float64) string {
	s := strings.TrimRight(strconv.FormatFloat(v, 'f', 2, 64), "0")
	return strings.TrimRight(s, ".")
}

// SortGlobal orders items by (-rank, -trust, -date, headline) so output
// is stable and deterministic across runs.
func SortGlobal(items []brief.Signal) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Rank != items[j].Rank {
			return items[i].Rank > items[j].Rank
		}
		if items[i].Scorecard.Trust != items[j].Scorecard.Trust {
			return items[i].Scorecard.Trust > items[j].Scorecard.Trust
		}
		if items[i].Dated != items[j].Dated {
			return items[i].Dated > items[j].Dated
		}
		return strings.ToLower(items[i].Headline) < strings.ToLower(items[j].Headline)
	})
}
