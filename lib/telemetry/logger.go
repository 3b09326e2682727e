// Package telemetry provides the logging, metrics and tracing used by the
// composition pipeline.
//
//   - Structured logging via log/slog
//   - Metrics via Prometheus
//   - Tracing via OpenTelemetry
//
// Every helper is nil-safe: a nil logger, *Metrics or *Tracer disables the
// corresponding feature.
package telemetry

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the context's logger, or fallback when none is set.
func LoggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

// EnrichLogger adds resolution identity to a logger.
//
//	enriched := EnrichLogger(logger, "page", "home", 0)
//	enriched.Info("rendering") // includes component, view, nest_level
func EnrichLogger(logger *slog.Logger, component, view string, nestLevel int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("component", component),
		slog.String("view", view),
		slog.Int("nest_level", nestLevel),
	)
}

// LogResolveStart logs the start of a component resolution.
func LogResolveStart(logger *slog.Logger, id string) {
	if logger == nil {
		return
	}
	logger.Debug("resolve starting", slog.String("id", id))
}

// LogResolveComplete logs a finished resolution.
func LogResolveComplete(logger *slog.Logger, id string, durationMs float64, children int) {
	if logger == nil {
		return
	}
	logger.Debug("resolve completed",
		slog.String("id", id),
		slog.Float64("duration_ms", durationMs),
		slog.Int("children", children),
	)
}

// LogChildError logs a child resolution that was replaced by an error
// fragment.
func LogChildError(logger *slog.Logger, child, address string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("child component failed",
		slog.String("child", child),
		slog.String("address", address),
		slog.String("error", err.Error()),
	)
}

// LogFactoryError logs an absorbed factory failure.
func LogFactoryError(logger *slog.Logger, component, view, factory, scope string, err error) {
	if logger == nil {
		return
	}
	logger.Error("factory failed",
		slog.String("component", component),
		slog.String("view", view),
		slog.String("factory", factory),
		slog.String("scope", scope),
		slog.String("error", err.Error()),
	)
}

// LogRenderError logs an absorbed renderer failure.
func LogRenderError(logger *slog.Logger, component, view, kind string, err error) {
	if logger == nil {
		return
	}
	logger.Error("render failed",
		slog.String("component", component),
		slog.String("view", view),
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)
}
