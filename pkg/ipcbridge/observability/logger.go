// Package observability provides logging, metrics, and tracing helpers for
// ipcbridge clients and transports.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds request context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, id, "ping")
//	enriched.Debug("waiting") // includes correlation_id and event
func EnrichLogger(logger *slog.Logger, correlationID, event string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("correlation_id", correlationID),
		slog.String("event", event),
	)
}

// LogRequest logs a request leaving the client.
func LogRequest(logger *slog.Logger, correlationID, event, mode string) {
	if logger == nil {
		return
	}
	logger.Debug("request sent",
		slog.String("correlation_id", correlationID),
		slog.String("event", event),
		slog.String("mode", mode),
	)
}

// LogSendError logs a request the transport refused.
func LogSendError(logger *slog.Logger, correlationID, event string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("request send failed",
		slog.String("correlation_id", correlationID),
		slog.String("event", event),
		slog.String("error", err.Error()),
	)
}

// LogDelivered logs a response handed to its handler.
func LogDelivered(logger *slog.Logger, correlationID, event string, latency time.Duration, err error) {
	if logger == nil {
		return
	}
	attrs := []any{
		slog.String("correlation_id", correlationID),
		slog.String("event", event),
		slog.Float64("latency_ms", float64(latency.Microseconds())/1000),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.Debug("response delivered", attrs...)
}

// LogUnmatched logs an inbound response nobody was waiting for.
func LogUnmatched(logger *slog.Logger, key, strategy string) {
	if logger == nil {
		return
	}
	logger.Debug("unmatched response dropped",
		slog.String("key", key),
		slog.String("strategy", strategy),
	)
}

// LogBuffered logs a response parked by the fallback transport.
func LogBuffered(logger *slog.Logger, event string, pending int) {
	if logger == nil {
		return
	}
	logger.Debug("response buffered",
		slog.String("event", event),
		slog.Int("pending", pending),
	)
}

// LogRemoved logs explicit handler removal.
func LogRemoved(logger *slog.Logger, key string, count int) {
	if logger == nil {
		return
	}
	logger.Debug("handlers removed",
		slog.String("key", key),
		slog.Int("count", count),
	)
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
