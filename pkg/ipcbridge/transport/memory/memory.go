// Package memory provides an in-process loopback transport.
//
// Requests are recorded and optionally handed to a PeerFunc that plays the
// external process. Replies travel back through the id-matching path, the
// same way a production transport delivers them.
package memory

import (
	"context"
	"sync"

	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport"
)

// PeerFunc plays the remote side. It may call reply any number of times,
// from any goroutine.
type PeerFunc func(req transport.Request, reply func(err error, data any))

// Echo replies once with the request arguments.
func Echo(req transport.Request, reply func(err error, data any)) {
	reply(nil, req.Args)
}

// Option configures a Transport.
type Option func(*Transport)

// WithPeer sets the function that answers requests.
func WithPeer(fn PeerFunc) Option {
	return func(t *Transport) {
		t.peer = fn
	}
}

// WithAsync runs the peer on its own goroutine for every request.
func WithAsync() Option {
	return func(t *Transport) {
		t.async = true
	}
}

// WithWireCodec round-trips every reply through the JSON wire format, so
// handlers see the same error and data types a network peer would produce.
func WithWireCodec() Option {
	return func(t *Transport) {
		t.wire = true
	}
}

// Transport is an in-memory transport.Transport.
type Transport struct {
	peer  PeerFunc
	async bool
	wire  bool

	mu       sync.Mutex
	receiver transport.Receiver
	sent     []transport.Request
	failNext error
	closed   bool
	wg       sync.WaitGroup
}

var _ transport.Transport = (*Transport)(nil)

// New creates a loopback transport.
func New(opts ...Option) *Transport {
	t := &Transport{}
	for _, opt := range opts {
		opt(t)
	}
	return t
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

// Send implements transport.Transport.
func (t *Transport) Send(ctx context.Context, req transport.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return transport.ErrClosed
	}
	if err := t.failNext; err != nil {
		t.failNext = nil
		t.mu.Unlock()
		return err
	}
	t.sent = append(t.sent, req)
	peer := t.peer
	if peer != nil && t.async {
		t.wg.Add(1)
	}
	t.mu.Unlock()

	if peer == nil {
		return nil
	}

	reply := func(err error, data any) {
		_ = t.Respond(req.ID, err, data)
	}
	if t.async {
		go func() {
			defer t.wg.Done()
			peer(req, reply)
		}()
		return nil
	}
	peer(req, reply)
	return nil
}

// Respond delivers a response for id to the receiver. Responses sent before
// Listen are dropped.
func (t *Transport) Respond(id string, err error, data any) error {
	t.mu.Lock()
	r := t.receiver
	closed := t.closed
	t.mu.Unlock()

	if closed {
		return transport.ErrClosed
	}
	if r == nil {
		return nil
	}

	resp := transport.Response{ID: id, Err: err, Data: data}
	if t.wire {
		encoded, encErr := transport.EncodeResponse(resp)
		if encErr != nil {
			return encErr
		}
		if resp, encErr = transport.DecodeResponse(encoded); encErr != nil {
			return encErr
		}
	}

	r.Dispatch(resp)
	return nil
}

// FailNext makes the next Send return err without recording the request.
func (t *Transport) FailNext(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failNext = err
}

// Sent returns every request sent so far.
func (t *Transport) Sent() []transport.Request {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]transport.Request, len(t.sent))
	copy(out, t.sent)
	return out
}

// Last returns the most recent request.
func (t *Transport) Last() (transport.Request, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.sent) == 0 {
		return transport.Request{}, false
	}
	return t.sent[len(t.sent)-1], true
}

// Wait blocks until every asynchronous peer call has returned.
func (t *Transport) Wait() {
	t.wg.Wait()
}

// Close implements transport.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.receiver = nil
	return nil
}
