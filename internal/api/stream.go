package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/briefbot/briefbot/internal/brief"
	"github.com/briefbot/briefbot/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The stream carries no credentials and mutates nothing, so
	// cross-origin dashboards may subscribe.
	CheckOrigin: func(*http.Request) bool { return true },
}

// streamEvent is one progress frame on the websocket.
type streamEvent struct {
	Event   string       `json:"event"`
	Channel string       `json:"channel,omitempty"`
	Items   int          `json:"items,omitempty"`
	Current int          `json:"current,omitempty"`
	Total   int          `json:"total,omitempty"`
	Message string       `json:"message,omitempty"`
	Seconds float64      `json:"seconds,omitempty"`
	Brief   *brief.Brief `json:"brief,omitempty"`
}

// wsSink forwards pipeline progress over a websocket. Writes are
// serialized; a dead peer turns further sends into no-ops so the run
// still completes.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
	dead bool
}

func (s *wsSink) send(ev streamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return
	}
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := s.conn.WriteJSON(ev); err != nil {
		s.dead = true
	}
}

func (s *wsSink) StartChannel(ch brief.Channel) {
	s.send(streamEvent{Event: "channel_start", Channel: string(ch)})
}

func (s *wsSink) EndChannel(ch brief.Channel, items int) {
	s.send(streamEvent{Event: "channel_end", Channel: string(ch), Items: items})
}

func (s *wsSink) StartEnrich(total int) {
	s.send(streamEvent{Event: "enrich_start", Total: total})
}

func (s *wsSink) UpdateEnrich(current, total int) {
	s.send(streamEvent{Event: "enrich_progress", Current: current, Total: total})
}

func (s *wsSink) EndEnrich() {
	s.send(streamEvent{Event: "enrich_end"})
}

func (s *wsSink) StartProcessing() {
	s.send(streamEvent{Event: "processing_start"})
}

func (s *wsSink) EndProcessing() {
	s.send(streamEvent{Event: "processing_end"})
}

func (s *wsSink) ShowError(msg string) {
	s.send(streamEvent{Event: "error", Message: msg})
}

func (s *wsSink) ShowComplete(items int, elapsed time.Duration) {
	s.send(streamEvent{Event: "complete", Items: items, Seconds: elapsed.Seconds()})
}

// handleBriefStream upgrades to a websocket, reads one BriefRequest
// frame, streams progress events, and finishes with the full brief.
func (s *Server) handleBriefStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	var body BriefRequest
	if err := conn.ReadJSON(&body); err != nil {
		s.logger.Debug().Err(err).Msg("stream request decode failed")
		return
	}
	if body.Topic == "" {
		_ = conn.WriteJSON(streamEvent{Event: "failed", Message: "topic is required"})
		return
	}

	sink := &wsSink{conn: conn}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	b, err := s.orch.RunWithSink(ctx, pipeline.Request{
		Topic:          body.Topic,
		Mode:           body.Mode,
		Span:           body.Span,
		Sampling:       body.Sampling,
		Refresh:        body.Refresh,
		ExcludeUndated: body.ExcludeUndated,
		WebResults:     body.WebResults,
	}, sink)
	if err != nil {
		sink.send(streamEvent{Event: "failed", Message: err.Error()})
		return
	}
	sink.send(streamEvent{Event: "brief", Brief: b})
}
