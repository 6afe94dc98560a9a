// Package kv defines the key-value primitives the session and rate limit
// components consume, and the error taxonomy every backend reports through.
package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable means the store could not be reached or the call timed out.
	// It never stands for "absent" or "denied".
	ErrUnavailable = errors.New("kv: store unavailable")

	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("kv: key not found")
)

// TTL sentinels, mirroring the values Redis reports.
const (
	TTLMissing    time.Duration = -2
	TTLPersistent time.Duration = -1
)

// Store is the set of single-key operations backing sessions and counters.
type Store interface {
	// Incr atomically increments key, creating it at 1 when absent.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets the TTL of key. It reports false when the key does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// TTL returns the remaining time to live, or TTLMissing / TTLPersistent.
	TTL(ctx context.Context, key string) (time.Duration, error)

	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
}

// AtomicCounter is implemented by stores that can increment, set the TTL on
// creation and read it back in a single server-side step.
type AtomicCounter interface {
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (count int64, remaining time.Duration, err error)
}

// Unavailable reports whether err means the store could not answer.
func Unavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
