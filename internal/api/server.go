// Package api exposes the research pipeline over HTTP: a synchronous
// brief endpoint, a websocket variant that streams progress, cache
// management, and prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/briefbot/briefbot/internal/brief"
	"github.com/briefbot/briefbot/internal/pipeline"
	"github.com/briefbot/briefbot/internal/providers"
	"github.com/briefbot/briefbot/internal/registry"
)

// requestTimeout caps a synchronous brief request; the dense sampling
// tier can legitimately run for minutes.
const requestTimeout = 6 * time.Minute

// BriefRequest is the POST /v1/brief payload.
type BriefRequest struct {
	Topic          string                `json:"topic"`
	Mode           string                `json:"mode,omitempty"`
	Span           brief.Span            `json:"span"`
	Sampling       providers.Tier        `json:"sampling,omitempty"`
	Refresh        bool                  `json:"refresh,omitempty"`
	ExcludeUndated bool                  `json:"exclude_undated,omitempty"`
	WebResults     []providers.WebResult `json:"web_results,omitempty"`
}

// Server routes API traffic to an orchestrator.
type Server struct {
	orch   *pipeline.Orchestrator
	store  registry.Store
	reg    *prometheus.Registry
	logger zerolog.Logger
	router *mux.Router
}

// NewServer wires the routes.
func NewServer(orch *pipeline.Orchestrator, store registry.Store, reg *prometheus.Registry, logger zerolog.Logger) *Server {
	s := &Server{
		orch:   orch,
		store:  store,
		reg:    reg,
		logger: logger,
		router: mux.NewRouter(),
	}
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/brief", s.handleBrief).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/brief/stream", s.handleBriefStream).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/cache/stats", s.handleCacheStats).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/cache", s.handleCacheClear).Methods(http.MethodDelete)
	if reg != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return s
}

// Handler returns the root handler for http.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBriefRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	b, err := s.orch.Run(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", req.Topic).Msg("brief request failed")
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func decodeBriefRequest(r *http.Request) (pipeline.Request, error) {
	var body BriefRequest
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return pipeline.Request{}, err
	}
	if body.Topic == "" {
		return pipeline.Request{}, errors.New("topic is required")
	}
	return pipeline.Request{
		Topic:          body.Topic,
		Mode:           body.Mode,
		Span:           body.Span,
		Sampling:       body.Sampling,
		Refresh:        body.Refresh,
		ExcludeUndated: body.ExcludeUndated,
		WebResults:     body.WebResults,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
