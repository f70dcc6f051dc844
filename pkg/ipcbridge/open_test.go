package ipcbridge_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/config"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/journal"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport/fallback"
	"github.com/randalmurphal/ipcbridge/pkg/ipcbridge/transport/memory"
)

func TestOpen_Fallback(t *testing.T) {
	s := config.DefaultSettings()
	s.LogLevel = "error"

	c, err := ipcbridge.Open(context.Background(), s, ipcbridge.WithLogger(quietLogger()))
	require.NoError(t, err)
	defer c.Close()

	ft, ok := c.Transport().(*fallback.Transport)
	require.True(t, ok)

	ft.Handle("evt", nil, "buffered")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	data, err := c.RequestOnce(ctx, "evt").Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "buffered", data)
}

func TestOpen_MemoryWithSQLiteJournal(t *testing.T) {
	ctx := context.Background()
	s := config.DefaultSettings()
	s.Transport = config.TransportMemory
	s.LogLevel = "error"
	s.JournalPath = filepath.Join(t.TempDir(), "unmatched.db")

	c, err := ipcbridge.Open(ctx, s)
	require.NoError(t, err)

	mt, ok := c.Transport().(*memory.Transport)
	require.True(t, ok)

	_, ok = c.Journal().(*journal.SQLiteStore)
	require.True(t, ok)

	require.NoError(t, mt.Respond("ghost", nil, map[string]int{"n": 1}))

	recs, err := c.Journal().List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "ghost", recs[0].CorrelationID)
	assert.JSONEq(t, `{"n":1}`, string(recs[0].Data))

	removed, err := c.PurgeJournal(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	store := c.Journal()
	require.NoError(t, c.Close())

	_, err = store.Count(ctx)
	assert.ErrorIs(t, err, journal.ErrStoreClosed, "client owns the journal it opened")
}

func TestOpen_JournalOff(t *testing.T) {
	s := config.DefaultSettings()
	s.Transport = config.TransportMemory
	s.LogLevel = "error"
	s.JournalPath = "off"

	c, err := ipcbridge.Open(context.Background(), s)
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Journal())
	n, err := c.PurgeJournal(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOpen_InvalidSettings(t *testing.T) {
	s := config.DefaultSettings()
	s.Transport = "smoke-signals"

	_, err := ipcbridge.Open(context.Background(), s)
	assert.ErrorIs(t, err, config.ErrInvalidSettings)
}

func TestOpen_NATSUnreachable(t *testing.T) {
	s := config.DefaultSettings()
	s.Transport = config.TransportNATS
	s.NATSURL = "nats://127.0.0.1:1"
	s.ConnectTimeout = 200 * time.Millisecond
	s.Retries = 0
	s.LogLevel = "error"

	_, err := ipcbridge.Open(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open nats transport")
}
