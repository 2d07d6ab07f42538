// Package logging installs the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a text-handler slog.Logger at the given level as the
// default logger and returns it. debug forces debug-level output and adds
// source locations, mirroring the teacher's --debug flag idiom.
func Setup(level string, debug bool) *slog.Logger {
	lvl := parseLevel(level)
	if debug {
		lvl = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: debug,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
