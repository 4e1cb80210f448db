package env

import (
	"log/slog"
	"strings"
)

// ParseLogLevel reads LOG_LEVEL ("debug", "info", "warn", "error") and falls
// back to the provided level when the variable is empty or unrecognised.
func ParseLogLevel(fallback slog.Level) slog.Level {
	switch strings.ToLower(Get("LOG_LEVEL", "")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
