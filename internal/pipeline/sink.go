// Package pipeline wires providers, enrichment, intent, ranking, and
// the cache into a single research run.
package pipeline

import (
	"time"

	"github.com/briefbot/briefbot/internal/brief"
)

// ProgressSink receives lifecycle callbacks from the pipeline. The core
// never writes to stdout or stderr itself; the CLI supplies a sink that
// renders, the API forwards events over a websocket.
type ProgressSink interface {
	StartChannel(ch brief.Channel)
	EndChannel(ch brief.Channel, items int)
	StartEnrich(total int)
	UpdateEnrich(current, total int)
	EndEnrich()
	StartProcessing()
	EndProcessing()
	ShowError(msg string)
	ShowComplete(items int, elapsed time.Duration)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) StartChannel(brief.Channel)          {}
func (NopSink) EndChannel(brief.Channel, int)       {}
func (NopSink) StartEnrich(int)                     {}
func (NopSink) UpdateEnrich(int, int)               {}
func (NopSink) EndEnrich()                          {}
func (NopSink) StartProcessing()                    {}
func (NopSink) EndProcessing()                      {}
func (NopSink) ShowError(string)                    {}
func (NopSink) ShowComplete(int, time.Duration)     {}
