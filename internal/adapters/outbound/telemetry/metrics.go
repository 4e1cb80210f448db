package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/archon-research/alchemist-indexer/internal/ports/outbound"
)

// Compile-time check that Metrics implements outbound.IndexerMetrics
var _ outbound.IndexerMetrics = (*Metrics)(nil)

// Metrics records indexer activity with OpenTelemetry instruments.
type Metrics struct {
	events        metric.Int64Counter
	eventDuration metric.Float64Histogram
	messages      metric.Int64Counter
}

// NewMetrics creates the indexer instruments on provider's meter. A nil
// provider uses the global one.
func NewMetrics(provider metric.MeterProvider, meterName string) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	events, err := meter.Int64Counter(
		"indexer_events_total",
		metric.WithDescription("Decoded events handled by the indexer, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer_events_total counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"indexer_event_duration_seconds",
		metric.WithDescription("Time taken to apply and commit one event"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer_event_duration_seconds histogram: %w", err)
	}

	messages, err := meter.Int64Counter(
		"indexer_messages_total",
		metric.WithDescription("Block event messages consumed, by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer_messages_total counter: %w", err)
	}

	return &Metrics{
		events:        events,
		eventDuration: duration,
		messages:      messages,
	}, nil
}

// RecordEvent counts one handled event and records its duration.
func (m *Metrics) RecordEvent(ctx context.Context, event, source, outcome string, duration time.Duration) {
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	))
	m.eventDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("event", event)))
}

// RecordMessage counts one consumed queue message.
func (m *Metrics) RecordMessage(ctx context.Context, status string) {
	m.messages.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
