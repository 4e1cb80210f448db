package outbound

import (
	"context"
	"encoding/json"
)

// ReceiptCache reads transaction receipts cached by the block watcher.
// Receipts are keyed by chain ID, block number, and version. The version is
// incremented each time a block at the same height is reorged.
type ReceiptCache interface {
	// GetReceipts retrieves transaction receipts for a block. The payload may be
	// gzip-compressed JSON.
	// Returns nil, nil if the receipts are not in cache.
	GetReceipts(ctx context.Context, chainID int64, blockNumber int64, version int) (json.RawMessage, error)

	// Close closes the cache connection.
	Close() error
}
