package ipcbridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/journal"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/observability"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/registry"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport"
)

// Handler receives responses for a request: a delivery error or data.
type Handler = registry.HandlerFunc

// ErrorHandler observes every error delivered to a handler.
type ErrorHandler func(err error)

// Client correlates requests with the responses delivered by a Transport.
// It is safe for concurrent use.
type Client struct {
	transport transport.Transport
	registry  *registry.Registry

	logger          *slog.Logger
	metrics         observability.MetricsRecorder
	spans           observability.SpanManager
	journal         journal.Store
	ownsJournal     bool
	newID           func() string
	unmatchedErrors bool

	sink atomic.Pointer[ErrorHandler]

	mu     sync.RWMutex // guards closed against registration
	closed bool
}

var _ transport.Receiver = (*Client)(nil)

// New creates a client on t and starts listening for responses.
func New(t transport.Transport, opts ...Option) (*Client, error) {
	if t == nil {
		return nil, ErrNilTransport
	}

	c := &Client{
		transport: t,
		registry:  registry.New(),
		logger:    slog.Default(),
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
		newID:     newUUID,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := t.Listen(c); err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return c, nil
}

// RequestOnce sends a request and returns a Future for its first response.
// The handler behind the future removes itself before completing it, so
// later responses for the same id are unmatched.
func (c *Client) RequestOnce(ctx context.Context, event string, args ...any) *Future {
	id := c.newID()
	f := newFuture(id, event)

	ctx, span := c.spans.StartRequestSpan(ctx, event, id, registry.ModeOnce.String())

	// Dispatch claims the entry before calling this, so it runs at most
	// once per registration.
	handler := func(err error, data any) {
		c.spans.AddSpanEvent(ctx, "ipcbridge.response", attribute.Bool("ipc.error", err != nil))
		if f.complete(data, err) {
			c.spans.EndSpanWithError(span, err)
		}
	}

	if err := c.register(ctx, id, event, registry.ModeOnce, handler); err != nil {
		f.complete(nil, err)
		c.spans.EndSpanWithError(span, err)
		return f
	}

	c.send(ctx, id, event, registry.ModeOnce, args)
	return f
}

// RequestCallback sends a request and invokes handler for every response
// with its correlation id until the handler is removed. It returns the id.
func (c *Client) RequestCallback(ctx context.Context, event string, handler Handler, args ...any) (string, error) {
	if handler == nil {
		return "", ErrNilHandler
	}

	id := c.newID()
	ctx, span := c.spans.StartRequestSpan(ctx, event, id, registry.ModeStream.String())
	if err := c.register(ctx, id, event, registry.ModeStream, handler); err != nil {
		c.spans.EndSpanWithError(span, err)
		return "", err
	}

	err := c.send(ctx, id, event, registry.ModeStream, args)
	c.spans.EndSpanWithError(span, err)
	return id, nil
}

func (c *Client) register(ctx context.Context, id, event string, mode registry.Mode, handler Handler) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}
	return c.registry.Register(registry.Entry{
		ID:      id,
		Event:   event,
		Mode:    mode,
		Handler: handler,
		Context: context.WithoutCancel(ctx),
	})
}

// send forwards the request. A transport failure is delivered to the
// request's own handler as a *SendError and also returned.
func (c *Client) send(ctx context.Context, id, event string, mode registry.Mode, args []any) error {
	observability.LogRequest(c.logger, id, event, mode.String())
	c.metrics.RecordRequest(ctx, event, mode.String())

	err := c.transport.Send(ctx, transport.NewRequest(id, event, args))
	if err == nil {
		return nil
	}

	observability.LogSendError(c.logger, id, event, err)
	sendErr := &SendError{ID: id, Event: event, Err: err}
	c.Dispatch(transport.Response{ID: id, Err: sendErr})
	return sendErr
}

// Dispatch delivers a response to the handler registered under its id.
// Responses for unknown ids are dropped and, if a journal is configured,
// recorded.
//
// A one-shot entry is claimed and removed before anything runs, so
// concurrent responses for the same id reach it at most once; the rest are
// unmatched.
func (c *Client) Dispatch(resp transport.Response) {
	entry, ok := c.registry.Claim(resp.ID)
	if !ok {
		c.unmatched(resp)
		return
	}
	c.deliver(entry, resp.Err, resp.Data)
}

// DispatchEvent delivers a response to the oldest handler registered for
// event and reports whether one was found. Nothing is recorded when no
// handler matches; the caller keeps the response.
func (c *Client) DispatchEvent(event string, err error, data any) bool {
	entry, ok := c.registry.ClaimFirstByEvent(event)
	if !ok {
		observability.LogUnmatched(c.logger, event, journal.StrategyEvent)
		return false
	}
	c.deliver(entry, err, data)
	return true
}

func (c *Client) deliver(entry registry.Entry, err error, data any) {
	if err != nil {
		c.reportError(err)
	}

	latency := time.Since(entry.RegisteredAt)
	observability.LogDelivered(c.logger, entry.ID, entry.Event, latency, err)
	ctx := entry.Context
	if ctx == nil {
		ctx = context.Background()
	}
	c.metrics.RecordDispatch(ctx, entry.Event, latency, err)

	entry.Handler(err, data)
}

func (c *Client) unmatched(resp transport.Response) {
	observability.LogUnmatched(c.logger, resp.ID, journal.StrategyID)
	c.metrics.RecordUnmatched(context.Background(), journal.StrategyID)

	if c.unmatchedErrors && resp.Err != nil {
		c.reportError(resp.Err)
	}

	if c.journal == nil {
		return
	}
	rec := journal.NewRecord(journal.StrategyID, resp.ID, "", resp.Err, resp.Data)
	if err := c.journal.Append(context.Background(), rec); err != nil {
		c.logger.Warn("journal append failed",
			slog.String("correlation_id", resp.ID),
			slog.String("error", err.Error()))
	}
}

// SetErrorHandler replaces the error handler. Nil restores the default,
// which does nothing. The handler runs synchronously on the delivering
// goroutine, before the request's own handler.
func (c *Client) SetErrorHandler(fn ErrorHandler) {
	if fn == nil {
		c.sink.Store(nil)
		return
	}
	c.sink.Store(&fn)
}

func (c *Client) reportError(err error) {
	if fn := c.sink.Load(); fn != nil {
		(*fn)(err)
	}
}

// Pending returns the registered handlers, oldest first.
func (c *Client) Pending() []registry.Entry {
	return c.registry.Snapshot()
}

// RemoveByID stops delivery to the handler registered under id. A pending
// Future for id stays incomplete.
func (c *Client) RemoveByID(id string) bool {
	removed := c.registry.RemoveByID(id)
	if removed {
		observability.LogRemoved(c.logger, id, 1)
	}
	return removed
}

// RemoveAllByEvent stops delivery to every handler registered for event and
// returns how many were removed.
func (c *Client) RemoveAllByEvent(event string) int {
	n := c.registry.RemoveAllByEvent(event)
	if n > 0 {
		observability.LogRemoved(c.logger, event, n)
	}
	return n
}

// Close closes the transport, drops every handler and rejects pending
// futures with ErrClientClosed. Callback handlers are not notified.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	entries := c.registry.Clear()
	c.mu.Unlock()

	err := c.transport.Close()

	for _, entry := range entries {
		if entry.Mode == registry.ModeOnce {
			entry.Handler(ErrClientClosed, nil)
		}
	}

	if c.ownsJournal && c.journal != nil {
		if jerr := c.journal.Close(); jerr != nil && err == nil {
			err = jerr
		}
	}
	return err
}
