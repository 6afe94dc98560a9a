//go:build integration

package store_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/kv"
	"github.com/Ducksans/gg-real-sub001/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func getRedisURL() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return store.DefaultURL
}

func TestRedisStoreIntegration(t *testing.T) {
	manager := store.NewManager(store.Config{URL: getRedisURL(), OpTimeout: 2 * time.Second}, zap.NewNop())
	defer manager.Close()

	ctx := context.Background()
	if _, err := manager.Ensure(ctx); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	s := store.NewRedisStore(manager, 2*time.Second)
	prefix := fmt.Sprintf("it:%d:", time.Now().UnixNano())

	t.Run("set and get", func(t *testing.T) {
		key := prefix + "session"

		require.NoError(t, s.Set(ctx, key, []byte("v"), time.Minute))

		got, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)

		// Cleanup
		_ = s.Del(ctx, key)
	})

	t.Run("counter with expiry", func(t *testing.T) {
		key := prefix + "counter"

		n, ttl, err := s.IncrWithExpiry(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.LessOrEqual(t, ttl, time.Minute)

		n, err = s.Incr(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		// Cleanup
		_ = s.Del(ctx, key)
	})

	t.Run("get non-existent returns ErrNotFound", func(t *testing.T) {
		_, err := s.Get(ctx, prefix+"missing")

		assert.ErrorIs(t, err, kv.ErrNotFound)
	})
}
