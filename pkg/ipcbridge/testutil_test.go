package ipcbridge_test

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sequentialIDs returns a generator producing id-1, id-2, ...
func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("id-%d", n.Add(1))
	}
}

// newTestClient builds a client on a memory transport with deterministic ids.
func newTestClient(t *testing.T, tr *memory.Transport, opts ...ipcbridge.Option) *ipcbridge.Client {
	t.Helper()
	base := []ipcbridge.Option{
		ipcbridge.WithLogger(quietLogger()),
		ipcbridge.WithIDGenerator(sequentialIDs()),
	}
	c, err := ipcbridge.New(tr, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

type call struct {
	err  error
	data any
}

// recorder collects handler invocations.
type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) handle(err error, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{err: err, data: data})
}

func (r *recorder) all() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
