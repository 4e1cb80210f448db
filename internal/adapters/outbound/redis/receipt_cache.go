// Package redis reads block receipts cached in Redis by the block watcher.
//
// Keys follow prefix:chainID:blockNumber:version:receipts. Payloads are
// returned as stored; they may be gzip-compressed JSON.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/archon-research/alchemist-indexer/internal/pkg/retry"
	"github.com/archon-research/alchemist-indexer/internal/ports/outbound"
)

// Compile-time check that ReceiptCache implements outbound.ReceiptCache
var _ outbound.ReceiptCache = (*ReceiptCache)(nil)

// Config holds Redis cache configuration.
type Config struct {
	// Addr is the Redis server address (e.g., "localhost:6379")
	Addr string
	// Password for Redis authentication (empty for no auth)
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is prepended to all cache keys
	KeyPrefix string
	// DialTimeout bounds each connection attempt.
	DialTimeout time.Duration
	// Retry governs retries of failed reads. Cache misses are never retried.
	Retry retry.Config
}

// ConfigDefaults returns sensible defaults for Redis cache configuration.
func ConfigDefaults() Config {
	return Config{
		Addr:        "localhost:6379",
		KeyPrefix:   "stl",
		DialTimeout: 5 * time.Second,
		Retry:       retry.DefaultConfig(),
	}
}

// ReceiptCache is a Redis implementation of the outbound.ReceiptCache port.
type ReceiptCache struct {
	client    *redis.Client
	keyPrefix string
	retry     retry.Config
	logger    *slog.Logger
}

// NewReceiptCache creates a new Redis receipt cache.
func NewReceiptCache(cfg Config, logger *slog.Logger) (*ReceiptCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	defaults := ConfigDefaults()
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaults.KeyPrefix
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.Retry == (retry.Config{}) {
		cfg.Retry = defaults.Retry
	}

	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	return &ReceiptCache{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		retry:     cfg.Retry,
		logger:    logger.With("component", "redis-receipts"),
	}, nil
}

// Ping checks the Redis connection, retrying while the server comes up.
func (c *ReceiptCache) Ping(ctx context.Context) error {
	onRetry := func(attempt int, err error, backoff time.Duration) {
		c.logger.Warn("retrying redis ping", "attempt", attempt, "backoff", backoff, "error", err)
	}
	err := retry.DoVoid(ctx, c.retry, retry.Always, onRetry, func(ctx context.Context) error {
		return c.client.Ping(ctx).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *ReceiptCache) Close() error {
	return c.client.Close()
}

func (c *ReceiptCache) key(chainID, blockNumber int64, version int) string {
	return fmt.Sprintf("%s:%d:%d:%d:receipts", c.keyPrefix, chainID, blockNumber, version)
}

func isTransient(err error) bool {
	return !errors.Is(err, redis.Nil) && retry.Always(err)
}

// GetReceipts retrieves the cached receipts of a block, or nil, nil when the key
// is missing or expired.
func (c *ReceiptCache) GetReceipts(ctx context.Context, chainID, blockNumber int64, version int) (json.RawMessage, error) {
	key := c.key(chainID, blockNumber, version)

	onRetry := func(attempt int, err error, backoff time.Duration) {
		c.logger.Warn("retrying receipt fetch",
			"key", key,
			"attempt", attempt,
			"backoff", backoff,
			"error", err)
	}

	data, err := retry.Do(ctx, c.retry, isTransient, onRetry, func(ctx context.Context) ([]byte, error) {
		return c.client.Get(ctx, key).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipts %s: %w", key, err)
	}
	return data, nil
}
