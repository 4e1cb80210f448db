// Package telemetry wires OpenTelemetry metrics for the indexer.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// MetricConfig holds configuration for the metrics pipeline.
type MetricConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// InstanceID identifies this process. A random UUID is used when empty.
	InstanceID string

	// OTLPEndpoint is the OTLP gRPC endpoint. Empty leaves the global no-op
	// provider in place.
	OTLPEndpoint string

	// ExportInterval defaults to 15s.
	ExportInterval time.Duration
}

// InitMetrics installs a global meter provider exporting over OTLP gRPC and
// returns its shutdown func.
func InitMetrics(ctx context.Context, config MetricConfig) (shutdown func(context.Context) error, err error) {
	if config.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	if config.ExportInterval == 0 {
		config.ExportInterval = 15 * time.Second
	}

	res, err := newResource(config)
	if err != nil {
		return nil, err
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(config.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(config.ExportInterval))),
	)
	otel.SetMeterProvider(provider)

	return provider.Shutdown, nil
}

func newResource(config MetricConfig) (*resource.Resource, error) {
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.ServiceInstanceID(config.InstanceID),
			semconv.DeploymentEnvironmentName(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
