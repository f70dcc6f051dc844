package ipcbridge

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport"
)

// Sentinel errors.
var (
	// ErrClientClosed indicates the client was closed. Pending one-shot
	// futures are rejected with it.
	ErrClientClosed = errors.New("client closed")

	// ErrNilHandler indicates RequestCallback was called without a handler.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrNilTransport indicates New was called without a transport.
	ErrNilTransport = errors.New("transport cannot be nil")

	// ErrNotReady indicates Future.Result was called before completion.
	ErrNotReady = errors.New("future not complete")
)

// RemoteError is a failure reported by the external process.
type RemoteError = transport.RemoteError

// SendError is delivered to a handler when the transport refused its
// request. It is synthesized locally and routed like any other response.
type SendError struct {
	// ID is the correlation id of the request.
	ID string
	// Event is the request event.
	Event string
	// Err is the transport error.
	Err error
}

// Error implements the error interface.
func (e *SendError) Error() string {
	return fmt.Sprintf("send %s (%s): %v", e.Event, e.ID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SendError) Unwrap() error {
	return e.Err
}
