package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/archon-research/alchemist-indexer/internal/ports/outbound"
)

// Compile-time check that ReceiptCache implements outbound.ReceiptCache
var _ outbound.ReceiptCache = (*ReceiptCache)(nil)

// ReceiptCache holds receipt payloads keyed by chainID:blockNumber:version.
type ReceiptCache struct {
	mu       sync.RWMutex
	receipts map[string]json.RawMessage
	getErr   error
	closed   bool
}

// NewReceiptCache creates an empty cache.
func NewReceiptCache() *ReceiptCache {
	return &ReceiptCache{
		receipts: make(map[string]json.RawMessage),
	}
}

func (c *ReceiptCache) key(chainID, blockNumber int64, version int) string {
	return fmt.Sprintf("%d:%d:%d", chainID, blockNumber, version)
}

// SetReceipts stores a raw, possibly gzip-compressed, payload.
func (c *ReceiptCache) SetReceipts(chainID, blockNumber int64, version int, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receipts[c.key(chainID, blockNumber, version)] = append(json.RawMessage(nil), data...)
}

// FailGets makes every later GetReceipts return err.
func (c *ReceiptCache) FailGets(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getErr = err
}

func (c *ReceiptCache) GetReceipts(ctx context.Context, chainID int64, blockNumber int64, version int) (json.RawMessage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, fmt.Errorf("receipt cache is closed")
	}
	if c.getErr != nil {
		return nil, c.getErr
	}
	data, ok := c.receipts[c.key(chainID, blockNumber, version)]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), data...), nil
}

func (c *ReceiptCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
