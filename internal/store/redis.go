package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/kv"
	"github.com/redis/go-redis/v9"
)

//go:embed incr_expire.lua
var incrExpireSource string

var incrExpireScript = redis.NewScript(incrExpireSource)

// Connector hands out the shared client. Replace swaps out a client that
// reports itself closed.
type Connector interface {
	Client() (*redis.Client, error)
	Replace(stale *redis.Client) (*redis.Client, error)
}

// RedisStore is a Redis implementation of kv.Store.
type RedisStore struct {
	conn    Connector
	timeout time.Duration
}

// NewRedisStore creates a Redis-backed store. A positive timeout bounds every call.
func NewRedisStore(conn Connector, timeout time.Duration) *RedisStore {
	return &RedisStore{
		conn:    conn,
		timeout: timeout,
	}
}

func (r *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	var n int64

	err := r.do(ctx, "incr", func(ctx context.Context, c *redis.Client) (err error) {
		n, err = c.Incr(ctx, key).Result()

		return err
	})

	return n, err
}

func (r *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	var ok bool

	err := r.do(ctx, "expire", func(ctx context.Context, c *redis.Client) (err error) {
		ok, err = c.Expire(ctx, key, ttl).Result()

		return err
	})

	return ok, err
}

func (r *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	var ttl time.Duration

	err := r.do(ctx, "ttl", func(ctx context.Context, c *redis.Client) (err error) {
		ttl, err = c.TTL(ctx, key).Result()

		return err
	})
	if err != nil {
		return 0, err
	}

	// go-redis leaves the -2 and -1 sentinels unscaled.
	switch ttl {
	case -2:
		return kv.TTLMissing, nil
	case -1:
		return kv.TTLPersistent, nil
	}

	return ttl, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.do(ctx, "set", func(ctx context.Context, c *redis.Client) error {
		return c.Set(ctx, key, value, ttl).Err()
	})
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := r.do(ctx, "get", func(ctx context.Context, c *redis.Client) (err error) {
		value, err = c.Get(ctx, key).Bytes()

		return err
	})

	return value, err
}

func (r *RedisStore) Del(ctx context.Context, key string) error {
	return r.do(ctx, "del", func(ctx context.Context, c *redis.Client) error {
		return c.Del(ctx, key).Err()
	})
}

// IncrWithExpiry increments key and sets its TTL in one script run. The TTL is
// applied when the counter is created or found without one.
func (r *RedisStore) IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	var values []int64

	err := r.do(ctx, "incr_expire", func(ctx context.Context, c *redis.Client) (err error) {
		values, err = incrExpireScript.Run(ctx, c, []string{key}, ttl.Milliseconds()).Int64Slice()

		return err
	})
	if err != nil {
		return 0, 0, err
	}

	if len(values) != 2 {
		return 0, 0, fmt.Errorf("store: incr_expire: unexpected reply %v", values)
	}

	return values[0], ttlFromMillis(values[1]), nil
}

func (r *RedisStore) do(ctx context.Context, op string, fn func(context.Context, *redis.Client) error) error {
	client, err := r.conn.Client()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", kv.ErrUnavailable, op, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	err = fn(ctx, client)
	if errors.Is(err, redis.ErrClosed) {
		// A closed client never reached the server, so one retry is safe.
		client, err = r.conn.Replace(client)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", kv.ErrUnavailable, op, err)
		}

		err = fn(ctx, client)
	}

	return classify(op, err)
}

// classify maps client errors onto the kv taxonomy. Server replies other than
// nil pass through as they are; everything else means the store did not answer.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return kv.ErrNotFound
	case isReply(err):
		return fmt.Errorf("store: %s: %w", op, err)
	default:
		return fmt.Errorf("%w: %s: %w", kv.ErrUnavailable, op, err)
	}
}

func isReply(err error) bool {
	if errors.Is(err, redis.Nil) {
		return true
	}

	var reply redis.Error

	return errors.As(err, &reply)
}

func ttlFromMillis(ms int64) time.Duration {
	switch ms {
	case -2:
		return kv.TTLMissing
	case -1:
		return kv.TTLPersistent
	}

	return time.Duration(ms) * time.Millisecond
}

// Compile-time checks.
var (
	_ kv.Store         = (*RedisStore)(nil)
	_ kv.AtomicCounter = (*RedisStore)(nil)
)
