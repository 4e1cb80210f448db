// Package shared holds helpers used by more than one application service.
package shared

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
)

var gzipMagic = []byte{0x1f, 0x8b}

// IsGzip reports whether data starts with the gzip magic bytes.
func IsGzip(data []byte) bool {
	return len(data) > len(gzipMagic) && bytes.HasPrefix(data, gzipMagic)
}

// ParseCompressedJSON unmarshals a cached payload into v. Gzipped payloads are
// inflated first; anything else is treated as plain JSON.
func ParseCompressedJSON(data []byte, v any) error {
	if IsGzip(data) {
		inflated, err := gunzip(data)
		if err != nil {
			return err
		}
		data = inflated
	}
	return json.Unmarshal(data, v)
}

func gunzip(data []byte) (out []byte, err error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip payload: %w", err)
	}
	defer func() {
		if cerr := zr.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close gzip payload: %w", cerr)
		}
	}()
	out, err = io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to inflate gzip payload: %w", err)
	}
	return out, nil
}
