// Package metrics provides Prometheus metrics for the tiering batch tool.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the Prometheus collectors for one process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	// Business metrics
	tournamentsScored prometheus.Counter
	tournamentsFailed prometheus.Counter
	scoreDuration     prometheus.Histogram

	// Collaborator health
	sourceRequests prometheus.Counter
	sourceErrors   prometheus.Counter
	geocodeRetries prometheus.Counter

	// Discovery
	eventsDiscovered prometheus.Counter
	eventsSkipped    *prometheus.CounterVec
}

// NewManager creates a metrics manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tiering",
		subsystem:        "batch",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.tournamentsScored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "tournaments_scored_total",
		Help: "Tournaments scored successfully.",
	})
	m.tournamentsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "tournaments_failed_total",
		Help: "Tournaments whose scoring failed and was skipped.",
	})
	m.scoreDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "score_duration_seconds",
		Help:    "Wall time to fetch and score one tournament.",
		Buckets: m.histogramBuckets,
	})
	m.sourceRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "source",
		Name: "requests_total",
		Help: "Requests issued to the tournament data source.",
	})
	m.sourceErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "source",
		Name: "errors_total",
		Help: "Failed data source requests.",
	})
	m.geocodeRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "geocode",
		Name: "retries_total",
		Help: "Reverse geocoding attempts that had to be retried.",
	})
	m.eventsDiscovered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "search",
		Name: "events_discovered_total",
		Help: "Event slugs accepted by the discovery filter.",
	})
	m.eventsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "search",
		Name: "events_skipped_total",
		Help: "Event slugs rejected by the discovery filter.",
	}, []string{"reason"})

	m.registry.MustRegister(
		m.tournamentsScored,
		m.tournamentsFailed,
		m.scoreDuration,
		m.sourceRequests,
		m.sourceErrors,
		m.geocodeRetries,
		m.eventsDiscovered,
		m.eventsSkipped,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) TournamentScored(d time.Duration) {
	if !m.enabled {
		return
	}
	m.tournamentsScored.Inc()
	m.scoreDuration.Observe(d.Seconds())
}

func (m *Manager) TournamentFailed() {
	if !m.enabled {
		return
	}
	m.tournamentsFailed.Inc()
}

func (m *Manager) SourceRequest() {
	if !m.enabled {
		return
	}
	m.sourceRequests.Inc()
}

func (m *Manager) SourceError() {
	if !m.enabled {
		return
	}
	m.sourceErrors.Inc()
}

func (m *Manager) GeocodeRetry() {
	if !m.enabled {
		return
	}
	m.geocodeRetries.Inc()
}

func (m *Manager) EventDiscovered() {
	if !m.enabled {
		return
	}
	m.eventsDiscovered.Inc()
}

func (m *Manager) EventSkipped(reason string) {
	if !m.enabled {
		return
	}
	m.eventsSkipped.WithLabelValues(reason).Inc()
}
