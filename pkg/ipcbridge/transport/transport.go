// Package transport defines the contract between an ipcbridge client and the
// channel that carries its requests to the external process.
//
// A Transport sends requests and, once Listen has been called, hands every
// inbound response to the Receiver. Production transports match responses
// by correlation id and call Receiver.Dispatch. The development fallback
// matches by event name and calls Receiver.DispatchEvent.
package transport

import (
	"context"
	"errors"
)

// ChannelRequest is the envelope channel used for every outbound request.
const ChannelRequest = "request"

// Sentinel errors shared by transport implementations.
var (
	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("transport closed")

	// ErrAlreadyListening indicates Listen was called twice.
	ErrAlreadyListening = errors.New("transport already has a receiver")
)

// Request is an outbound request envelope.
type Request struct {
	Channel string `json:"channel"`
	ID      string `json:"id"`
	Event   string `json:"event"`
	Args    []any  `json:"args"`
}

// NewRequest builds a request envelope on the request channel.
func NewRequest(id, event string, args []any) Request {
	if args == nil {
		args = []any{}
	}
	return Request{
		Channel: ChannelRequest,
		ID:      id,
		Event:   event,
		Args:    args,
	}
}

// Response is an inbound message for a correlation id. Err carries the
// remote side's failure report, Data its result; either may be nil.
type Response struct {
	ID   string
	Err  error
	Data any
}

// Receiver consumes inbound messages. ipcbridge.Client implements it.
type Receiver interface {
	// Dispatch routes a response to the handler registered for its id.
	Dispatch(resp Response)

	// DispatchEvent routes a response to the oldest handler registered for
	// event and reports whether one was found.
	DispatchEvent(event string, err error, data any) bool
}

// Transport carries requests out and responses back.
type Transport interface {
	// Listen attaches the receiver for inbound messages.
	Listen(r Receiver) error

	// Send forwards a request. It does not wait for a response.
	Send(ctx context.Context, req Request) error

	// Close detaches the receiver and releases resources.
	Close() error
}
