// Package hexutil parses the 0x-prefixed quantities found in JSON-RPC payloads.
package hexutil

import (
	"strconv"
	"strings"
)

// ParseUint64 parses a hex-encoded string to uint64. A quantity with no digits
// is an error.
func ParseUint64(hexNum string) (uint64, error) {
	return strconv.ParseUint(trim(hexNum), 16, 64)
}

func trim(hexNum string) string {
	hexNum = strings.TrimPrefix(hexNum, "0x")
	return strings.TrimPrefix(hexNum, "0X")
}
