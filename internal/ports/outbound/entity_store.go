package outbound

import (
	"context"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
)

// EntityStore persists indexer entities as key-value records addressed by
// (kind, id).
type EntityStore interface {
	// Load returns the entity stored under (kind, id).
	// Returns nil, nil if no such entity exists.
	Load(ctx context.Context, kind entity.Kind, id string) (entity.Entity, error)

	// SaveAll upserts every entity atomically. Either all writes become visible
	// or none do.
	SaveAll(ctx context.Context, entities []entity.Entity) error
}
