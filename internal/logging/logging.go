package logging

import (
	"log/slog"
	"os"
	"strings"
)

var (
	level   = new(slog.LevelVar)
	fromEnv bool
)

// Init installs the default slog logger on stderr. The level comes from
// LOG_LEVEL when set, otherwise fallback.
func Init(fallback slog.Level) {
	level.Set(fallback)
	fromEnv = false
	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if parsed, ok := ParseLevel(l); ok {
			level.Set(parsed)
			fromEnv = true
		}
	}

	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}

// SetFallback changes the level used when LOG_LEVEL is not set. Long running
// commands like serve raise it to info.
func SetFallback(l slog.Level) {
	if !fromEnv {
		level.Set(l)
	}
}

// Level reports the current minimum level.
func Level() slog.Level { return level.Level() }

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development", "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error", "production", "prod":
		return slog.LevelError, true
	}
	return 0, false
}
