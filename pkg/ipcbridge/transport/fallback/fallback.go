// Package fallback provides the development-mode transport used when no
// real peer is attached.
//
// Responses are injected with Handle. A response whose event has no
// registered handler is buffered, and the oldest buffered entry for an event
// is redelivered, after a short delay, the next time a request with that
// event is sent. Matching is by event name, not correlation id: when several
// requests for the same event are outstanding, a buffered response goes to
// whichever handler was registered first.
package fallback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/observability"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport"
)

// DefaultDelay is the scheduling delay before a buffered response is
// redelivered.
const DefaultDelay = time.Millisecond

// Config configures the fallback transport.
type Config struct {
	// Delay before redelivering a buffered response. Zero means DefaultDelay.
	Delay time.Duration

	// Logger receives buffering diagnostics. Nil means slog.Default().
	Logger *slog.Logger

	// Metrics counts buffered responses. Nil means no metrics.
	Metrics observability.MetricsRecorder
}

// Buffered is a response waiting for a handler.
type Buffered struct {
	Event string
	Err   error
	Data  any

	done chan struct{}
}

// Done is closed once the entry has been handed back to the receiver.
func (b *Buffered) Done() <-chan struct{} {
	return b.done
}

// Transport is the event-matched fallback transport.
type Transport struct {
	delay   time.Duration
	logger  *slog.Logger
	metrics observability.MetricsRecorder

	mu       sync.Mutex
	receiver transport.Receiver
	buffer   []*Buffered
	closed   bool
}

var _ transport.Transport = (*Transport)(nil)

// New creates a fallback transport.
func New(cfg Config) *Transport {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}

	cfg.Logger.Warn("no transport attached, using development fallback",
		slog.Duration("delay", cfg.Delay))

	return &Transport{
		delay:   cfg.Delay,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Listen implements transport.Transport.
func (t *Transport) Listen(r transport.Receiver) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return transport.ErrClosed
	}
	if t.receiver != nil {
		return transport.ErrAlreadyListening
	}
	t.receiver = r
	return nil
}

// Send implements transport.Transport. The request itself goes nowhere; if a
// response for req.Event is buffered, the oldest one is redelivered after the
// configured delay.
func (t *Transport) Send(_ context.Context, req transport.Request) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return transport.ErrClosed
	}
	b := t.takeLocked(req.Event)
	t.mu.Unlock()

	if b == nil {
		return nil
	}

	time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if !closed {
			t.Handle(b.Event, b.Err, b.Data)
		}
		close(b.done)
	})
	return nil
}

// Handle delivers a response by event name. If no handler is registered
// for the event the response is buffered. The returned channel is closed
// once the response has been handed to a handler or redelivery has been
// attempted.
func (t *Transport) Handle(event string, err error, data any) <-chan struct{} {
	t.mu.Lock()
	r := t.receiver
	closed := t.closed
	t.mu.Unlock()

	done := make(chan struct{})
	if closed {
		close(done)
		return done
	}

	if r != nil && r.DispatchEvent(event, err, data) {
		close(done)
		return done
	}

	b := &Buffered{Event: event, Err: err, Data: data, done: done}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		close(done)
		return done
	}
	t.buffer = append(t.buffer, b)
	pending := len(t.buffer)
	t.mu.Unlock()

	observability.LogBuffered(t.logger, event, pending)
	t.metrics.RecordBuffered(context.Background(), event)
	return done
}

// Buffered returns a snapshot of the buffered responses, oldest first.
func (t *Transport) Buffered() []Buffered {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Buffered, 0, len(t.buffer))
	for _, b := range t.buffer {
		out = append(out, Buffered{Event: b.Event, Err: b.Err, Data: b.Data, done: b.done})
	}
	return out
}

// Len returns the number of buffered responses.
func (t *Transport) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buffer)
}

// Close implements transport.Transport. Buffered entries are discarded and
// their Done channels closed.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.receiver = nil
	for _, b := range t.buffer {
		close(b.done)
	}
	t.buffer = nil
	return nil
}

// takeLocked removes and returns the oldest buffered entry for event.
func (t *Transport) takeLocked(event string) *Buffered {
	for i, b := range t.buffer {
		if b.Event == event {
			t.buffer = append(t.buffer[:i], t.buffer[i+1:]...)
			return b
		}
	}
	return nil
}
