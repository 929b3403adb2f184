// Package observability holds logging and metrics plumbing shared by the
// CLI and the HTTP server.
package observability

import (
	"io"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sqlexplain/internal/config"
)

// ServiceName is attached to every log record.
const ServiceName = "sqlexplain"

// NewLogger builds a text or JSON slog logger at the configured level.
// A nil writer discards output.
func NewLogger(cfg config.LogConfig, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	return slog.New(handler).With(slog.String("service", ServiceName))
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
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
