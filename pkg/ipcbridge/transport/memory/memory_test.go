package memory_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReceiver struct {
	mu    sync.Mutex
	resps []transport.Response
}

func (r *recordingReceiver) Dispatch(resp transport.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resps = append(r.resps, resp)
}

func (r *recordingReceiver) DispatchEvent(string, error, any) bool { return false }

func (r *recordingReceiver) all() []transport.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transport.Response(nil), r.resps...)
}

func TestSend_RecordsRequests(t *testing.T) {
	tr := memory.New()
	ctx := context.Background()

	_, ok := tr.Last()
	assert.False(t, ok)

	require.NoError(t, tr.Send(ctx, transport.NewRequest("1", "ping", nil)))
	require.NoError(t, tr.Send(ctx, transport.NewRequest("2", "pong", []any{"x"})))

	sent := tr.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "ping", sent[0].Event)

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, "2", last.ID)
	assert.Equal(t, []any{"x"}, last.Args)
}

func TestSend_EchoPeer(t *testing.T) {
	tr := memory.New(memory.WithPeer(memory.Echo))
	r := &recordingReceiver{}
	require.NoError(t, tr.Listen(r))

	require.NoError(t, tr.Send(context.Background(), transport.NewRequest("abc", "echo", []any{1, "two"})))

	resps := r.all()
	require.Len(t, resps, 1)
	assert.Equal(t, "abc", resps[0].ID)
	assert.NoError(t, resps[0].Err)
	assert.Equal(t, []any{1, "two"}, resps[0].Data)
}

func TestSend_AsyncPeer(t *testing.T) {
	tr := memory.New(memory.WithAsync(), memory.WithPeer(func(req transport.Request, reply func(error, any)) {
		reply(nil, "a")
		reply(nil, "b")
	}))
	r := &recordingReceiver{}
	require.NoError(t, tr.Listen(r))

	require.NoError(t, tr.Send(context.Background(), transport.NewRequest("s", "stream", nil)))
	tr.Wait()

	resps := r.all()
	require.Len(t, resps, 2)
	assert.Equal(t, "a", resps[0].Data)
	assert.Equal(t, "b", resps[1].Data)
}

func TestSend_WireCodec(t *testing.T) {
	tr := memory.New(memory.WithWireCodec(), memory.WithPeer(func(req transport.Request, reply func(error, any)) {
		reply(errors.New("bad input"), map[string]int{"n": 1})
	}))
	r := &recordingReceiver{}
	require.NoError(t, tr.Listen(r))

	require.NoError(t, tr.Send(context.Background(), transport.NewRequest("w", "calc", nil)))

	resps := r.all()
	require.Len(t, resps, 1)

	var remote *transport.RemoteError
	require.ErrorAs(t, resps[0].Err, &remote)
	assert.Equal(t, "bad input", remote.Message)

	raw, ok := resps[0].Data.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"n":1}`, string(raw))
}

func TestFailNext(t *testing.T) {
	tr := memory.New()
	boom := errors.New("boom")
	tr.FailNext(boom)

	err := tr.Send(context.Background(), transport.NewRequest("1", "ping", nil))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, tr.Sent())

	assert.NoError(t, tr.Send(context.Background(), transport.NewRequest("2", "ping", nil)))
}

func TestSend_CanceledContext(t *testing.T) {
	tr := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, tr.Send(ctx, transport.NewRequest("1", "ping", nil)), context.Canceled)
}

func TestRespond_BeforeListenIsDropped(t *testing.T) {
	tr := memory.New()
	assert.NoError(t, tr.Respond("x", nil, 1))
}

func TestListenTwice(t *testing.T) {
	tr := memory.New()
	require.NoError(t, tr.Listen(&recordingReceiver{}))
	assert.ErrorIs(t, tr.Listen(&recordingReceiver{}), transport.ErrAlreadyListening)
}

func TestClose(t *testing.T) {
	tr := memory.New()
	require.NoError(t, tr.Listen(&recordingReceiver{}))
	require.NoError(t, tr.Close())

	assert.ErrorIs(t, tr.Send(context.Background(), transport.NewRequest("1", "ping", nil)), transport.ErrClosed)
	assert.ErrorIs(t, tr.Respond("1", nil, nil), transport.ErrClosed)
	assert.ErrorIs(t, tr.Listen(&recordingReceiver{}), transport.ErrClosed)
}
