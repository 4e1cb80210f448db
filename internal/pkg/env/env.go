// Package env provides utilities for working with environment variables.
package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Get returns the value of the environment variable or the default if not set.
func Get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetInt returns the variable parsed as an int, or defaultValue when unset.
func GetInt(key string, defaultValue int) (int, error) {
	raw := Get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, raw, err)
	}
	return v, nil
}

// GetDuration returns the variable parsed by time.ParseDuration, or
// defaultValue when unset.
func GetDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := Get(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return v, nil
}

// GetAddresses parses a comma-separated list of hex addresses. Blank entries
// are skipped; an unset variable yields an empty list.
func GetAddresses(key string) ([]common.Address, error) {
	raw := Get(key, "")
	if raw == "" {
		return nil, nil
	}
	var out []common.Address
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !common.IsHexAddress(part) {
			return nil, fmt.Errorf("%s: invalid address %q", key, part)
		}
		out = append(out, common.HexToAddress(part))
	}
	return out, nil
}
