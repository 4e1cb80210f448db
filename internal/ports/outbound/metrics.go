// Package outbound defines the outbound port interfaces.
package outbound

import (
	"context"
	"time"
)

// IndexerMetrics records indexer activity without tying services to a telemetry
// backend.
type IndexerMetrics interface {
	// RecordEvent counts one handled event and its outcome.
	RecordEvent(ctx context.Context, event, source, outcome string, duration time.Duration)

	// RecordMessage counts one queue message by final status.
	RecordMessage(ctx context.Context, status string)
}
