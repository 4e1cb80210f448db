// Package retry retries transient failures with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Config holds configuration for retry behavior.
type Config struct {
	// MaxRetries is the number of attempts after the first. Zero disables retries.
	MaxRetries int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64

	// Jitter stretches each wait by a random amount in [0, backoff).
	Jitter bool
}

// DefaultConfig returns the defaults used by the cache and queue adapters.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = d.BackoffFactor
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// Backoff returns the un-jittered wait before retry number attempt (1-indexed).
func (c Config) Backoff(attempt int) time.Duration {
	c = c.withDefaults()
	b := c.InitialBackoff
	for i := 1; i < attempt; i++ {
		b = time.Duration(float64(b) * c.BackoffFactor)
		if b >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return min(b, c.MaxBackoff)
}

// IsRetryableFunc reports whether err should trigger another attempt.
type IsRetryableFunc func(error) bool

// OnRetryFunc is called before each wait. attempt is 1-indexed.
type OnRetryFunc func(attempt int, err error, backoff time.Duration)

// Always treats every error except context cancellation as retryable.
func Always(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do calls fn until it succeeds, returns a non-retryable error, or runs out of
// retries. A nil isRetryable behaves like Always.
func Do[T any](
	ctx context.Context,
	cfg Config,
	isRetryable IsRetryableFunc,
	onRetry OnRetryFunc,
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T
	if isRetryable == nil {
		isRetryable = Always
	}
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := cfg.Backoff(attempt)
			if cfg.Jitter {
				wait += time.Duration(rand.Int64N(int64(wait)))
			}
			if onRetry != nil {
				onRetry(attempt, lastErr, wait)
			}

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, fmt.Errorf("context cancelled while retrying: %w", errors.Join(ctx.Err(), lastErr))
			case <-timer.C:
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return zero, err
		}
	}

	return zero, fmt.Errorf("operation failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

// DoVoid is Do for functions without a result.
func DoVoid(
	ctx context.Context,
	cfg Config,
	isRetryable IsRetryableFunc,
	onRetry OnRetryFunc,
	fn func(context.Context) error,
) error {
	_, err := Do(ctx, cfg, isRetryable, onRetry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
