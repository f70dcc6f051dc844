package registry_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/registry"
)

func noop(error, any) {}

func entry(id, event string) registry.Entry {
	return registry.Entry{ID: id, Event: event, Mode: registry.ModeStream, Handler: noop}
}

func ids(entries []registry.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "once", registry.ModeOnce.String())
	assert.Equal(t, "stream", registry.ModeStream.String())
	assert.Equal(t, "unknown", registry.Mode(42).String())
}

func TestRegistry_Register_Validation(t *testing.T) {
	reg := registry.New()

	t.Run("empty id", func(t *testing.T) {
		err := reg.Register(registry.Entry{Event: "ping", Handler: noop})
		assert.ErrorIs(t, err, registry.ErrEmptyID)
	})

	t.Run("nil handler", func(t *testing.T) {
		err := reg.Register(registry.Entry{ID: "a", Event: "ping"})
		assert.ErrorIs(t, err, registry.ErrNilHandler)
	})

	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_LookupAndRemove(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(entry("a", "ping")))

	got, ok := reg.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "ping", got.Event)
	assert.False(t, got.RegisteredAt.IsZero())

	assert.True(t, reg.RemoveByID("a"))
	assert.False(t, reg.RemoveByID("a"), "second removal is a no-op")

	_, ok = reg.Lookup("a")
	assert.False(t, ok)
	_, ok = reg.FindFirstByEvent("ping")
	assert.False(t, ok)
}

func TestRegistry_OverwriteKeepsSingleEntry(t *testing.T) {
	reg := registry.New()
	var calls []string

	require.NoError(t, reg.Register(entry("a", "ping")))
	require.NoError(t, reg.Register(entry("b", "ping")))
	require.NoError(t, reg.Register(registry.Entry{
		ID:      "a",
		Event:   "ping",
		Handler: func(error, any) { calls = append(calls, "second") },
	}))

	assert.Equal(t, 2, reg.Len())
	first, ok := reg.FindFirstByEvent("ping")
	require.True(t, ok)
	assert.Equal(t, "a", first.ID, "overwrite keeps insertion position")

	first.Handler(nil, nil)
	assert.Equal(t, []string{"second"}, calls, "last write wins")
}

func TestRegistry_OverwriteMovesEvent(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(entry("a", "ping")))
	require.NoError(t, reg.Register(entry("a", "pong")))

	_, ok := reg.FindFirstByEvent("ping")
	assert.False(t, ok)
	got, ok := reg.FindFirstByEvent("pong")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_FindFirstByEvent_InsertionOrder(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(entry("a", "other")))
	require.NoError(t, reg.Register(entry("b", "evt")))
	require.NoError(t, reg.Register(entry("c", "evt")))

	got, ok := reg.FindFirstByEvent("evt")
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)

	reg.RemoveByID("b")
	got, ok = reg.FindFirstByEvent("evt")
	require.True(t, ok)
	assert.Equal(t, "c", got.ID)
}

func TestRegistry_Claim(t *testing.T) {
	reg := registry.New()
	once := entry("a", "evt")
	once.Mode = registry.ModeOnce
	require.NoError(t, reg.Register(once))
	require.NoError(t, reg.Register(entry("b", "evt")))

	got, ok := reg.Claim("a")
	require.True(t, ok)
	assert.Equal(t, registry.ModeOnce, got.Mode)
	_, ok = reg.Claim("a")
	assert.False(t, ok, "one-shot entry is removed by its claim")

	got, ok = reg.Claim("b")
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)
	_, ok = reg.Lookup("b")
	assert.True(t, ok, "stream entry stays registered")

	_, ok = reg.Claim("missing")
	assert.False(t, ok)
}

func TestRegistry_ClaimFirstByEvent(t *testing.T) {
	reg := registry.New()
	for _, id := range []string{"a", "b"} {
		e := entry(id, "evt")
		e.Mode = registry.ModeOnce
		require.NoError(t, reg.Register(e))
	}

	first, ok := reg.ClaimFirstByEvent("evt")
	require.True(t, ok)
	second, ok := reg.ClaimFirstByEvent("evt")
	require.True(t, ok)
	_, ok = reg.ClaimFirstByEvent("evt")

	assert.False(t, ok)
	assert.Equal(t, "a", first.ID)
	assert.Equal(t, "b", second.ID)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_ClaimConcurrentOnce(t *testing.T) {
	for i := 0; i < 100; i++ {
		reg := registry.New()
		e := entry("a", "evt")
		e.Mode = registry.ModeOnce
		require.NoError(t, reg.Register(e))

		var claimed atomic.Int32
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func(byEvent bool) {
				defer wg.Done()
				var ok bool
				if byEvent {
					_, ok = reg.ClaimFirstByEvent("evt")
				} else {
					_, ok = reg.Claim("a")
				}
				if ok {
					claimed.Add(1)
				}
			}(g%2 == 0)
		}
		wg.Wait()

		require.Equal(t, int32(1), claimed.Load())
	}
}

func TestRegistry_RemoveAllByEvent(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(entry("a", "evt")))
	require.NoError(t, reg.Register(entry("b", "keep")))
	require.NoError(t, reg.Register(entry("c", "evt")))
	require.NoError(t, reg.Register(entry("d", "evt.sub")))

	removed := reg.RemoveAllByEvent("evt")

	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"b", "d"}, ids(reg.Snapshot()))
	assert.Equal(t, 0, reg.RemoveAllByEvent("evt"))
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(entry("a", "evt")))
	require.NoError(t, reg.Register(entry("b", "evt")))

	snap := reg.Snapshot()
	require.Len(t, snap, 2)
	snap[0].Event = "mutated"

	got, _ := reg.Lookup("a")
	assert.Equal(t, "evt", got.Event)
}

func TestRegistry_Clear(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(entry("a", "x")))
	require.NoError(t, reg.Register(entry("b", "y")))

	removed := reg.Clear()

	assert.Equal(t, []string{"a", "b"}, ids(removed))
	assert.Equal(t, 0, reg.Len())
	_, ok := reg.FindFirstByEvent("x")
	assert.False(t, ok)
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := registry.New()

	const workers = 20
	const perWorker = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("%d-%d", w, i)
				_ = reg.Register(entry(id, fmt.Sprintf("evt-%d", w%4)))
				_, _ = reg.FindFirstByEvent("evt-0")
				if i%2 == 0 {
					reg.RemoveByID(id)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker/2, reg.Len())
}
