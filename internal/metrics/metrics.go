// Package metrics exposes prometheus instrumentation for research runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set bundles the collectors the pipeline and API report into.
type Set struct {
	ProviderCalls *prometheus.CounterVec
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	RunDuration   prometheus.Histogram
	ItemsRanked   prometheus.Counter
}

// New registers a fresh metric set on the given registerer.
func New(reg prometheus.Registerer) *Set {
	s := &Set{
		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briefbot",
			Name:      "provider_calls_total",
			Help:      "Provider search calls by channel and outcome.",
		}, []string{"channel", "outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "briefbot",
			Name:      "cache_hits_total",
			Help:      "Brief cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "briefbot",
			Name:      "cache_misses_total",
			Help:      "Brief cache misses.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "briefbot",
			Name:      "run_duration_seconds",
			Help:      "End-to-end research run duration.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ItemsRanked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "briefbot",
			Name:      "items_ranked_total",
			Help:      "Signals that passed ranking.",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.ProviderCalls, s.CacheHits, s.CacheMisses, s.RunDuration, s.ItemsRanked)
	}
	return s
}

// Nop returns an unregistered set safe to report into from tests and
// callers that do not scrape.
func Nop() *Set {
	return New(nil)
}
