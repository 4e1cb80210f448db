package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archon-research/alchemist-indexer/internal/ports/outbound"
)

// Compile-time check that TxManager implements outbound.TxManager
var _ outbound.TxManager = (*TxManager)(nil)

// TxManager runs functions inside a pgx transaction.
type TxManager struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewTxManager creates a new transaction manager.
func NewTxManager(pool *pgxpool.Pool, logger *slog.Logger) (*TxManager, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TxManager{
		pool:   pool,
		logger: logger.With("component", "tx-manager"),
	}, nil
}

// WithTransaction executes fn within a transaction. The transaction is rolled
// back if fn returns an error or panics (the panic is re-raised), and committed
// otherwise.
func (m *TxManager) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return m.WithTransactionOptions(ctx, pgx.TxOptions{}, fn)
}

// WithTransactionOptions is WithTransaction with explicit isolation and access
// mode.
func (m *TxManager) WithTransactionOptions(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				m.logger.Error("failed to rollback transaction after panic", "error", rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			m.logger.Error("failed to rollback transaction", "error", rbErr, "originalError", err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
