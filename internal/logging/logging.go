// Package logging provides structured logging for the pipeline.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string
	// Format is the output format: json or text
	Format string
}

// DefaultConfig returns sensible logging defaults.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
	}
}

// Setup configures the global slog logger and returns it.
func Setup(cfg Config) *slog.Logger {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// Component returns a logger tagged with a component name.
func Component(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("component", name)
}

// ForPartition returns a logger tagged with the layer, table and
// logical date of the partition being refreshed.
func ForPartition(logger *slog.Logger, layer, table, date string) *slog.Logger {
	return logger.With(
		"layer", layer,
		"table", table,
		"date", date,
	)
}

// NewCorrelationID generates a correlation ID for one pipeline run.
func NewCorrelationID() string {
	return fmt.Sprintf("run-%d-%s", time.Now().Unix(), uuid.NewString()[:8])
}

type correlationIDKey struct{}

// WithCorrelationID stores a correlation ID in the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID extracts the correlation ID from the context,
// or returns an empty string if absent.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithContext returns a logger that carries the context's
// correlation ID, if one is set.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := CorrelationID(ctx); id != "" {
		return logger.With("correlation_id", id)
	}
	return logger
}
