// Package prometheus exposes indexer metrics for Prometheus scraping.
package prometheus

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/archon-research/alchemist-indexer/internal/ports/outbound"
)

// Compile-time check that Metrics implements outbound.IndexerMetrics
var _ outbound.IndexerMetrics = (*Metrics)(nil)

const namespace = "alchemist_indexer"

// Metrics records indexer activity on its own registry.
type Metrics struct {
	registry      *prometheus.Registry
	events        *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	messages      *prometheus.CounterVec
}

// NewMetrics registers the indexer collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Decoded events handled by the indexer, by outcome",
			},
			[]string{"event", "source", "outcome"},
		),
		eventDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_duration_seconds",
				Help:      "Time taken to apply and commit one event",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"event"},
		),
		messages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_total",
				Help:      "Block event messages consumed, by status",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) RecordEvent(_ context.Context, event, source, outcome string, duration time.Duration) {
	m.events.WithLabelValues(event, source, outcome).Inc()
	m.eventDuration.WithLabelValues(event).Observe(duration.Seconds())
}

func (m *Metrics) RecordMessage(_ context.Context, status string) {
	m.messages.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
