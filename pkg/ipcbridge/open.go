package ipcbridge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/config"
	ipcerrors "github.com/randalmurphal/ipcbridge/pkg/ipcbridge/errors"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/journal"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/observability"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport/fallback"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport/memory"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport/natsconn"
)

// Open builds a client from settings: the transport, the journal, logging
// at the configured level, and OTel metrics and tracing when enabled.
// Options are applied after the settings and take precedence.
func Open(ctx context.Context, s config.Settings, opts ...Option) (*Client, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: observability.ParseLevel(s.LogLevel),
	}))

	var metrics observability.MetricsRecorder = observability.NoopMetrics{}
	if s.Metrics {
		metrics = observability.NewMetricsRecorder()
	}

	t, err := openTransport(ctx, s, logger, metrics)
	if err != nil {
		return nil, err
	}

	store, err := openJournal(s)
	if err != nil {
		_ = t.Close()
		return nil, err
	}

	base := []Option{
		WithLogger(logger),
		WithMetrics(metrics),
		WithUnmatchedErrors(s.UnmatchedErrors),
	}
	if s.Tracing {
		base = append(base, WithSpanManager(observability.NewSpanManager()))
	}
	if store != nil {
		base = append(base, WithJournal(store))
	}

	c, err := New(t, append(base, opts...)...)
	if err != nil {
		_ = t.Close()
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	if store != nil {
		if c.journal == store {
			c.ownsJournal = true
		} else {
			_ = store.Close()
		}
	}
	return c, nil
}

func openTransport(ctx context.Context, s config.Settings, logger *slog.Logger, metrics observability.MetricsRecorder) (transport.Transport, error) {
	switch s.Transport {
	case config.TransportNATS:
		retry := ipcerrors.NoRetry
		if s.Retries > 0 {
			retry = ipcerrors.DefaultRetry
			retry.MaxAttempts = s.Retries + 1
		}
		t, err := natsconn.Connect(ctx, natsconn.Config{
			URL:            s.NATSURL,
			SubjectPrefix:  s.SubjectPrefix,
			ConnectTimeout: s.ConnectTimeout,
			Retry:          retry,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open nats transport: %w", err)
		}
		return t, nil
	case config.TransportMemory:
		return memory.New(memory.WithWireCodec()), nil
	default:
		return fallback.New(fallback.Config{
			Delay:   s.FallbackDelay,
			Logger:  logger,
			Metrics: metrics,
		}), nil
	}
}

func openJournal(s config.Settings) (journal.Store, error) {
	switch {
	case s.JournalDisabled():
		return nil, nil
	case s.JournalPath == "":
		return journal.NewMemoryStore(s.JournalMaxSize), nil
	default:
		store, err := journal.NewSQLiteStore(s.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		return store, nil
	}
}

// PurgeJournal removes journal records older than maxAge.
func (c *Client) PurgeJournal(ctx context.Context, maxAge time.Duration) (int, error) {
	if c.journal == nil {
		return 0, nil
	}
	return c.journal.Purge(ctx, time.Now().Add(-maxAge))
}

// Journal returns the journal of unmatched responses, or nil.
func (c *Client) Journal() journal.Store {
	return c.journal
}

// Transport returns the transport the client listens on.
func (c *Client) Transport() transport.Transport {
	return c.transport
}
