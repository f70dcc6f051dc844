package benchmarks

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport/memory"
)

func newClient(b *testing.B, opts ...memory.Option) (*ipcbridge.Client, *memory.Transport) {
	b.Helper()
	tr := memory.New(opts...)
	c, err := ipcbridge.New(tr, ipcbridge.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = c.Close() })
	return c, tr
}

func pong(_ transport.Request, reply func(error, any)) {
	reply(nil, "pong")
}

// BenchmarkRequestOnce_RoundTrip measures a full synchronous one-shot cycle.
func BenchmarkRequestOnce_RoundTrip(b *testing.B) {
	c, _ := newClient(b, memory.WithPeer(pong))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.RequestOnce(ctx, "ping").Result(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRequestOnce_WireCodec adds JSON encoding of every response.
func BenchmarkRequestOnce_WireCodec(b *testing.B) {
	c, _ := newClient(b, memory.WithPeer(pong), memory.WithWireCodec())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.RequestOnce(ctx, "ping").Result(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDispatch_Stream measures delivery to a persistent handler.
func BenchmarkDispatch_Stream(b *testing.B) {
	c, _ := newClient(b)
	id, err := c.RequestCallback(context.Background(), "tail", func(error, any) {})
	if err != nil {
		b.Fatal(err)
	}
	resp := transport.Response{ID: id, Data: "line"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Dispatch(resp)
	}
}

// BenchmarkDispatch_Unmatched measures the drop path without a journal.
func BenchmarkDispatch_Unmatched(b *testing.B) {
	c, _ := newClient(b)
	resp := transport.Response{ID: "ghost"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Dispatch(resp)
	}
}
