package rank

import (
	"net/url"
	"strings"

	"github.com/briefbot/briefbot/internal/brief"
)

// DefaultDedupThreshold is the soft-similarity cutoff above which two
// items are considered the same story.
const DefaultDedupThreshold = 0.88

// substringBoost is the floor applied when one signature contains the
// other wholesale.
const substringBoost = 0.92

// URLKey normalizes a URL for identity comparison: lowercased, query and
// fragment stripped, trailing slash removed.
func URLKey(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexAny(raw, "?#"); i >= 0 {
			raw = raw[:i]
		}
		return strings.TrimSuffix(raw, "/")
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

// TextSignature squashes headline+byline+blurb into a comparable token
// stream: lowercased, non-alphanumerics collapsed, single spaces.
func TextSignature(sig *brief.Signal) string {
	joined := strings.ToLower(sig.Headline + " " + sig.Byline + " " + sig.Blurb)
	var b strings.Builder
	lastSpace := true
	for _, r := range joined {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Similarity computes the Ratcliff/Obershelp ratio of two signatures
// (the algorithm behind difflib's SequenceMatcher), boosted to at least
// substringBoost when one contains the other.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ratio := matchRatio(a, b)
	if strings.Contains(a, b) || strings.Contains(b, a) {
		if ratio < substringBoost {
			ratio = substringBoost
		}
	}
	return ratio
}

func matchRatio(a, b string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	matched := matchedChars(a, b)
	return 2 * float64(matched) / float64(total)
}

// matchedChars sums longest-common-substring lengths recursively on the
// flanks, per Ratcliff/Obershelp.
func matchedChars(a, b string) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	matched := size
	matched += matchedChars(a[:ai], b[:bi])
	matched += matchedChars(a[ai+size:], b[bi+size:])
	return matched
}

func longestCommonSubstring(a, b string) (int, int, int) {
	bestA, bestB, bestLen := 0, 0, 0
	// prev[j] holds the match length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestLen {
					bestLen = cur[j]
					bestA = i - bestLen
					bestB = j - bestLen
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestA, bestB, bestLen
}

// Deduplicate drops near-duplicates, keeping the higher-ranked item of
// each matching pair (lower index wins ties). Survivors keep their
// pre-existing order.
func Deduplicate(items []brief.Signal, threshold float64) []brief.Signal {
	if threshold <= 0 {
		threshold = DefaultDedupThreshold
	}
	n := len(items)
	urlKeys := make([]string, n)
	textSigs := make([]string, n)
	for i := range items {
		urlKeys[i] = URLKey(items[i].URL)
		textSigs[i] = TextSignature(&items[i])
	}

	discarded := make([]bool, n)
	for i := 0; i < n; i++ {
		if discarded[i] {
			continue
		}
		for j := i + 1; j < n; j++ {
			if discarded[j] {
				continue
			}
			var similarity float64
			if urlKeys[i] != "" && urlKeys[i] == urlKeys[j] {
				similarity = 1.0
			} else {
				similarity = Similarity(textSigs[i], textSigs[j])
			}
			if similarity < threshold {
				continue
			}
			// Keep the higher rank; ties keep the earlier item.
			if items[j].Rank > items[i].Rank {
				discarded[i] = true
			} else {
				discarded[j] = true
			}
			if discarded[i] {
				break
			}
		}
	}

	out := make([]brief.Signal, 0, n)
	for i := range items {
		if !discarded[i] {
			out = append(out, items[i])
		}
	}
	return out
}
