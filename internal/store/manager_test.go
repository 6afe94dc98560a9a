package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/kv"
	"github.com/Ducksans/gg-real-sub001/internal/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewManager_Defaults(t *testing.T) {
	m := store.NewManager(store.Config{}, zap.NewNop())

	assert.Equal(t, store.DefaultURL, m.Config().URL)
	assert.Positive(t, m.Config().DialTimeout)
}

func TestManager_Client(t *testing.T) {
	t.Run("returns the same client on every call", func(t *testing.T) {
		mr := miniredis.RunT(t)
		m := store.NewManager(store.Config{URL: "redis://" + mr.Addr()}, zap.NewNop())
		t.Cleanup(func() { _ = m.Close() })

		first, err := m.Client()
		require.NoError(t, err)

		second, err := m.Client()
		require.NoError(t, err)

		assert.Same(t, first, second)
	})

	t.Run("does not block when the store is down", func(t *testing.T) {
		m := store.NewManager(store.Config{URL: "redis://" + silentListener(t)}, zap.NewNop())
		t.Cleanup(func() { _ = m.Close() })

		start := time.Now()
		client, err := m.Client()

		require.NoError(t, err)
		assert.NotNil(t, client)
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("rejects an invalid url", func(t *testing.T) {
		m := store.NewManager(store.Config{URL: "ftp://nowhere"}, zap.NewNop())

		_, err := m.Client()

		assert.Error(t, err)
	})
}

func TestManager_Ensure(t *testing.T) {
	t.Run("returns a live client", func(t *testing.T) {
		mr := miniredis.RunT(t)
		m := store.NewManager(store.Config{URL: "redis://" + mr.Addr()}, zap.NewNop())
		t.Cleanup(func() { _ = m.Close() })

		client, err := m.Ensure(context.Background())

		require.NoError(t, err)
		assert.NoError(t, client.Ping(context.Background()).Err())
	})

	t.Run("reopens after Close", func(t *testing.T) {
		mr := miniredis.RunT(t)
		m := store.NewManager(store.Config{URL: "redis://" + mr.Addr()}, zap.NewNop())
		t.Cleanup(func() { _ = m.Close() })

		before, err := m.Ensure(context.Background())
		require.NoError(t, err)
		require.NoError(t, m.Close())

		after, err := m.Ensure(context.Background())

		require.NoError(t, err)
		assert.NotSame(t, before, after)
	})

	t.Run("replaces a client closed behind its back", func(t *testing.T) {
		mr := miniredis.RunT(t)
		m := store.NewManager(store.Config{URL: "redis://" + mr.Addr()}, zap.NewNop())
		t.Cleanup(func() { _ = m.Close() })

		before, err := m.Client()
		require.NoError(t, err)
		require.NoError(t, before.Close())

		after, err := m.Ensure(context.Background())

		require.NoError(t, err)
		assert.NotSame(t, before, after)
	})

	t.Run("replace keeps a newer client", func(t *testing.T) {
		mr := miniredis.RunT(t)
		m := store.NewManager(store.Config{URL: "redis://" + mr.Addr()}, zap.NewNop())
		t.Cleanup(func() { _ = m.Close() })

		stale, err := m.Client()
		require.NoError(t, err)
		t.Cleanup(func() { _ = stale.Close() })

		first, err := m.Replace(stale)
		require.NoError(t, err)

		second, err := m.Replace(stale)
		require.NoError(t, err)

		assert.NotSame(t, stale, first)
		assert.Same(t, first, second, "a second caller with the same stale client shares the replacement")
	})

	t.Run("close tolerates a client closed elsewhere", func(t *testing.T) {
		mr := miniredis.RunT(t)
		m := store.NewManager(store.Config{URL: "redis://" + mr.Addr()}, zap.NewNop())

		client, err := m.Client()
		require.NoError(t, err)
		require.NoError(t, client.Close())

		assert.NoError(t, m.Shutdown())
	})

	t.Run("reports unavailability when unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		m := store.NewManager(store.Config{URL: "redis://" + addr, DialTimeout: 200 * time.Millisecond}, zap.NewNop())
		t.Cleanup(func() { _ = m.Close() })

		_, err := m.Ensure(context.Background())

		assert.ErrorIs(t, err, kv.ErrUnavailable)
	})

	t.Run("honours the op timeout", func(t *testing.T) {
		m := store.NewManager(store.Config{
			URL:       "redis://" + silentListener(t),
			OpTimeout: 100 * time.Millisecond,
		}, zap.NewNop())
		t.Cleanup(func() { _ = m.Close() })

		_, err := m.Ensure(context.Background())

		assert.ErrorIs(t, err, kv.ErrUnavailable)
	})
}

func TestManager_LogsDialFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	m := store.NewManager(store.Config{URL: "redis://" + addr, DialTimeout: 200 * time.Millisecond}, zap.New(core))
	t.Cleanup(func() { _ = m.Close() })

	_, err := m.Ensure(context.Background())
	require.Error(t, err)

	assert.NotZero(t, logs.FilterMessage("store dial failed").Len())
}
