package pipeline

import (
	"fmt"

	"github.com/briefbot/briefbot/internal/brief"
	"github.com/briefbot/briefbot/internal/config"
)

// Resolution is the outcome of matching the requested mode against the
// credentials actually present.
type Resolution struct {
	Mode       string
	Channels   []brief.Channel
	IncludeWeb bool
	Warning    string
}

// ResolveSources maps a requested mode to the channels that can really
// run. Missing credentials silently drop channels; a run with no
// credentials degrades to web-only rather than failing.
func ResolveSources(requested string, creds config.Credentials, includeWeb bool) (Resolution, error) {
	openai := creds.OpenAIKey != ""
	xai := creds.XAIKey != ""

	var wanted []brief.Channel
	switch requested {
	case "", "auto", "all":
		wanted = []brief.Channel{brief.ChannelReddit, brief.ChannelX, brief.ChannelYouTube, brief.ChannelLinkedIn}
	case "reddit":
		wanted = []brief.Channel{brief.ChannelReddit}
	case "x":
		wanted = []brief.Channel{brief.ChannelX}
	case "youtube":
		wanted = []brief.Channel{brief.ChannelYouTube}
	case "linkedin":
		wanted = []brief.Channel{brief.ChannelLinkedIn}
	case "web":
		wanted = nil
		includeWeb = true
	case "both":
		wanted = []brief.Channel{brief.ChannelReddit, brief.ChannelX}
	case "reddit-web":
		wanted = []brief.Channel{brief.ChannelReddit}
		includeWeb = true
	case "x-web":
		wanted = []brief.Channel{brief.ChannelX}
		includeWeb = true
	default:
		return Resolution{}, fmt.Errorf("unknown mode %q", requested)
	}

	var available []brief.Channel
	var skipped []brief.Channel
	for _, ch := range wanted {
		ok := false
		switch ch {
		case brief.ChannelX:
			ok = xai
		default:
			ok = openai
		}
		if ok {
			available = append(available, ch)
		} else {
			skipped = append(skipped, ch)
		}
	}

	res := Resolution{Channels: available, IncludeWeb: includeWeb}
	if len(available) == 0 {
		res.IncludeWeb = true
		// "web-only" marks the credential fallback; an explicitly
		// requested web run keeps its own name.
		if requested == "web" {
			res.Mode = "web"
		} else {
			res.Mode = "web-only"
			res.Warning = "no provider credentials available; falling back to web results only"
		}
		return res, nil
	}
	res.Mode = effectiveMode(requested, available, includeWeb)
	if len(skipped) > 0 {
		res.Warning = fmt.Sprintf("channels skipped for missing credentials: %v", skipped)
	}
	return res, nil
}

func effectiveMode(requested string, available []brief.Channel, includeWeb bool) string {
	if requested == "" || requested == "auto" {
		if len(available) == 1 {
			if includeWeb {
				return string(available[0]) + "-web"
			}
			return string(available[0])
		}
		return "auto"
	}
	return requested
}
