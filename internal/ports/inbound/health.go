// Package inbound contains the interfaces the indexer exposes to its inbound
// adapters.
package inbound

// HealthChecker reports readiness and liveness for rolling deployments.
type HealthChecker interface {
	// IsReady returns true once at least one queue message has been processed.
	IsReady() bool

	// IsHealthy returns true while messages keep being processed within the
	// configured window.
	IsHealthy() bool
}

// BlockReporter is optionally implemented by a HealthChecker to expose the most
// recently indexed block.
type BlockReporter interface {
	LastBlock() int64
}
