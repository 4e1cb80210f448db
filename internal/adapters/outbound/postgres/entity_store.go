package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
	"github.com/archon-research/alchemist-indexer/internal/ports/outbound"
)

// Compile-time check that EntityStore implements outbound.EntityStore
var _ outbound.EntityStore = (*EntityStore)(nil)

const (
	selectEntity = `SELECT data FROM indexer_entity WHERE kind = $1 AND id = $2`

	upsertEntity = `
		INSERT INTO indexer_entity (kind, id, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (kind, id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
)

// EntityStore keeps each entity as a JSONB document in indexer_entity. A
// SaveAll call is one transaction.
type EntityStore struct {
	pool   *pgxpool.Pool
	txm    outbound.TxManager
	logger *slog.Logger
}

// NewEntityStore creates a store over pool. Writes go through txm.
func NewEntityStore(pool *pgxpool.Pool, txm outbound.TxManager, logger *slog.Logger) (*EntityStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	if txm == nil {
		return nil, fmt.Errorf("transaction manager cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EntityStore{
		pool:   pool,
		txm:    txm,
		logger: logger.With("component", "entity-store"),
	}, nil
}

// Load returns the entity stored under (kind, id), or nil, nil.
func (s *EntityStore) Load(ctx context.Context, kind entity.Kind, id string) (entity.Entity, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, selectEntity, string(kind), id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", kind, id, err)
	}
	return decodeEntity(kind, id, data)
}

// SaveAll upserts entities in one transaction.
func (s *EntityStore) SaveAll(ctx context.Context, entities []entity.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entities {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s: %w", e.EntityKind(), e.EntityID(), err)
		}
		batch.Queue(upsertEntity, string(e.EntityKind()), e.EntityID(), data)
	}

	err := s.txm.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to upsert %d entities: %w", len(entities), err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("saved entities", "count", len(entities))
	return nil
}

func decodeEntity(kind entity.Kind, id string, data []byte) (entity.Entity, error) {
	e, err := entity.NewEmpty(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", kind, id, err)
	}
	return e, nil
}
