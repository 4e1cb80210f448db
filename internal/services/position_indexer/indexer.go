// Package position_indexer maintains Alchemist position, user, looper, and
// protocol aggregates from decoded contract events.
//
// Events must be delivered one at a time in canonical chain order (block number,
// then log index). Each event is handled inside its own UnitOfWork, so a handler
// that skips or fails leaves no partial writes behind.
package position_indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
	"github.com/archon-research/alchemist-indexer/internal/ports/outbound"
)

// Indexer applies decoded events to the entity store.
//
// Indexer is not safe for concurrent use.
type Indexer struct {
	store  outbound.EntityStore
	logger *slog.Logger
}

// NewIndexer creates an Indexer writing to store.
func NewIndexer(store outbound.EntityStore, logger *slog.Logger) (*Indexer, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		store:  store,
		logger: logger.With("component", "position-indexer"),
	}, nil
}

// Handle applies one event. Malformed events return an error wrapping
// ErrMalformedEvent; store failures are returned wrapped and are never retried
// here.
func (ix *Indexer) Handle(ctx context.Context, ev DecodedEvent) (Outcome, error) {
	d, ok := dialects[ev.Source]
	if !ok {
		return "", fmt.Errorf("%w: unknown source %q", ErrMalformedEvent, ev.Source)
	}
	decode, ok := d[ev.Name]
	if !ok {
		ix.logger.Debug("ignoring event", "event", ev.Name, "source", ev.Source, "tx", ev.Meta.TxHash.Hex())
		return OutcomeIgnored, nil
	}
	if err := ev.Meta.validate(); err != nil {
		return "", err
	}

	op, err := decode(params{event: ev.Name, values: ev.Params}, ev.Meta)
	if err != nil {
		return "", err
	}

	logID := entity.EventID(ev.Meta.TxHash, ev.Meta.LogIndex)
	u := NewUnitOfWork(ix.store)

	seen, err := u.processed(ctx, logID)
	if err != nil {
		return "", fmt.Errorf("failed to check %s: %w", logID, err)
	}
	if seen {
		ix.logger.Debug("duplicate event", "event", ev.Name, "tx", ev.Meta.TxHash.Hex(), "logIndex", ev.Meta.LogIndex)
		return OutcomeDuplicate, nil
	}

	applied, err := op.apply(ctx, u, ev.Meta)
	if err != nil {
		return "", fmt.Errorf("failed to apply %s %s: %w", ev.Source, ev.Name, err)
	}

	outcome := OutcomeApplied
	if !applied {
		// Discard staged reads; only the marker is written so a redelivery
		// resolves the same way even if the position appears later.
		u = NewUnitOfWork(ix.store)
		outcome = OutcomeSkipped
		ix.logger.Debug("skipping event for unknown position",
			"event", ev.Name,
			"source", ev.Source,
			"tx", ev.Meta.TxHash.Hex(),
			"logIndex", ev.Meta.LogIndex)
	}

	u.Save(entity.NewProcessedLog(ev.Meta.TxHash, ev.Meta.LogIndex, ev.Name, ev.Source, ev.Meta.BlockNumber))
	if err := u.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit %s %s: %w", ev.Source, ev.Name, err)
	}

	if outcome == OutcomeApplied {
		ix.logger.Debug("applied event",
			"event", ev.Name,
			"source", ev.Source,
			"block", ev.Meta.BlockNumber,
			"tx", ev.Meta.TxHash.Hex(),
			"logIndex", ev.Meta.LogIndex)
	}
	return outcome, nil
}
