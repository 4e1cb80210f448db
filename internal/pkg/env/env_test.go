package env

import (
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestGet(t *testing.T) {
	t.Setenv("INDEXER_TEST_VALUE", "set")
	if got := Get("INDEXER_TEST_VALUE", "default"); got != "set" {
		t.Errorf("Get = %q, want set", got)
	}
	if got := Get("INDEXER_TEST_UNSET", "default"); got != "default" {
		t.Errorf("Get = %q, want default", got)
	}
}

func TestGetInt(t *testing.T) {
	t.Setenv("INDEXER_TEST_INT", "42")
	got, err := GetInt("INDEXER_TEST_INT", 1)
	if err != nil || got != 42 {
		t.Errorf("GetInt = %d, %v; want 42", got, err)
	}

	got, err = GetInt("INDEXER_TEST_INT_UNSET", 7)
	if err != nil || got != 7 {
		t.Errorf("GetInt unset = %d, %v; want 7", got, err)
	}

	t.Setenv("INDEXER_TEST_INT", "many")
	if _, err := GetInt("INDEXER_TEST_INT", 1); err == nil {
		t.Error("expected error for non-integer value")
	}
}

func TestGetDuration(t *testing.T) {
	t.Setenv("INDEXER_TEST_DURATION", "90s")
	got, err := GetDuration("INDEXER_TEST_DURATION", time.Second)
	if err != nil || got != 90*time.Second {
		t.Errorf("GetDuration = %v, %v; want 90s", got, err)
	}

	t.Setenv("INDEXER_TEST_DURATION", "soon")
	if _, err := GetDuration("INDEXER_TEST_DURATION", time.Second); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestGetAddresses(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    []common.Address
		wantErr bool
	}{
		{name: "unset", value: "", want: nil},
		{
			name:  "two with spaces",
			value: "0x0000000000000000000000000000000000000001, 0x0000000000000000000000000000000000000002",
			want: []common.Address{
				common.HexToAddress("0x01"),
				common.HexToAddress("0x02"),
			},
		},
		{
			name:  "trailing comma",
			value: "0x0000000000000000000000000000000000000003,",
			want:  []common.Address{common.HexToAddress("0x03")},
		},
		{name: "invalid", value: "0x1234", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("INDEXER_TEST_ADDRESSES", tt.value)
			got, err := GetAddresses("INDEXER_TEST_ADDRESSES")
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d addresses, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("address %d = %s, want %s", i, got[i].Hex(), tt.want[i].Hex())
				}
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelWarn},
		{"", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.value)
			if got := ParseLogLevel(slog.LevelWarn); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
