// Package providers implements the discovery providers: Reddit, X,
// YouTube, and LinkedIn via LLM search tools, plus the pass-through web
// normalizer. Every provider has the same shape: search returns the raw
// provider payload, a parse function extracts raw items from it.
package providers

import (
	"time"

	"github.com/briefbot/briefbot/internal/brief"
)

// Tier governs target item counts and per-provider timeouts.
type Tier string

const (
	TierLite     Tier = "lite"
	TierStandard Tier = "standard"
	TierDense    Tier = "dense"
)

// ItemRange is the min..max item count a provider should target.
type ItemRange struct {
	Min int
	Max int
}

// Counts returns the target range for a channel at this tier.
func (t Tier) Counts(ch brief.Channel) ItemRange {
	switch t {
	case TierLite:
		return ItemRange{6, 14}
	case TierDense:
		return ItemRange{26, 74}
	default:
		switch ch {
		case brief.ChannelReddit:
			return ItemRange{18, 32}
		case brief.ChannelX:
			return ItemRange{14, 30}
		default:
			return ItemRange{12, 22}
		}
	}
}

// Timeout returns the per-task timeout for a channel at this tier.
func (t Tier) Timeout(ch brief.Channel) time.Duration {
	switch ch {
	case brief.ChannelReddit:
		switch t {
		case TierLite:
			return 60 * time.Second
		case TierDense:
			return 150 * time.Second
		default:
			return 90 * time.Second
		}
	case brief.ChannelX:
		switch t {
		case TierLite:
			return 70 * time.Second
		case TierDense:
			return 145 * time.Second
		default:
			return 100 * time.Second
		}
	default:
		switch t {
		case TierLite:
			return 90 * time.Second
		case TierDense:
			return 180 * time.Second
		default:
			return 120 * time.Second
		}
	}
}
