package app

import (
	"io"
	"log/slog"
	"strings"
)

// levels maps the configuration spelling of a log level.
var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// newLogger creates the build's slog.Logger writing to outW. Unknown levels
// fall back to info. It never touches the global logger, so several builds can
// run side by side in tests.
func newLogger(levelStr, formatStr string, outW io.Writer, buildID string) *slog.Logger {
	level, ok := levels[strings.ToLower(levelStr)]
	if !ok {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(formatStr, "json") {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(handler).With("build_id", buildID)
}
