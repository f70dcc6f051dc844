package ipcbridge

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/journal"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/observability"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Default: no metrics.
//
// Example:
//
//	client, err := ipcbridge.New(tr, ipcbridge.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpanManager sets the tracer used for request spans. Default: no tracing.
func WithSpanManager(s observability.SpanManager) Option {
	return func(c *Client) {
		if s != nil {
			c.spans = s
		}
	}
}

// WithJournal records responses that arrive for unknown correlation ids.
// The caller keeps ownership of the store.
func WithJournal(store journal.Store) Option {
	return func(c *Client) {
		c.journal = store
	}
}

// WithIDGenerator replaces the correlation id generator. Ids must be unique
// for the lifetime of the client. Default: random UUIDs.
func WithIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// WithUnmatchedErrors also reports errors carried by unmatched responses to
// the error handler. By default only delivered errors are reported.
func WithUnmatchedErrors(enabled bool) Option {
	return func(c *Client) {
		c.unmatchedErrors = enabled
	}
}

func newUUID() string {
	return uuid.New().String()
}
