package ipcbridge

import (
	"context"
	"sync"
)

// Future is the pending result of a one-shot request. It completes exactly
// once, with either data or an error.
type Future struct {
	id    string
	event string

	once sync.Once
	done chan struct{}
	data any
	err  error
}

func newFuture(id, event string) *Future {
	return &Future{id: id, event: event, done: make(chan struct{})}
}

// ID returns the correlation id of the request.
func (f *Future) ID() string { return f.id }

// Event returns the request event.
func (f *Future) Event() string { return f.event }

// Done is closed when the future completes.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the future completes or ctx is done. Cancelling ctx
// does not remove the pending handler; use Client.RemoveByID for that.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.data, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome without blocking, or ErrNotReady.
func (f *Future) Result() (any, error) {
	select {
	case <-f.done:
		return f.data, f.err
	default:
		return nil, ErrNotReady
	}
}

// complete settles the future and reports whether this call did so.
func (f *Future) complete(data any, err error) bool {
	settled := false
	f.once.Do(func() {
		f.data = data
		f.err = err
		close(f.done)
		settled = true
	})
	return settled
}
