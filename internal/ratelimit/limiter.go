package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/keyspace"
	"github.com/Ducksans/gg-real-sub001/internal/kv"
)

// FixedWindowLimiter counts requests per key in fixed, non-overlapping
// windows. All state lives in the store, so instances sharing a store share
// quotas. A client can get up to 2×limit requests through around a window
// boundary; that is the accepted cost of one counter per key.
type FixedWindowLimiter struct {
	store    Store
	defaults Options
}

// NewFixedWindowLimiter creates a limiter. Zero fields of defaults take the
// package defaults.
func NewFixedWindowLimiter(store Store, defaults Options) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		store:    store,
		defaults: defaults.withDefaults(DefaultOptions()),
	}
}

// Defaults returns the options applied to zero fields.
func (l *FixedWindowLimiter) Defaults() Options {
	return l.defaults
}

// Consume records one request for key and reports whether it is within quota.
// Store failures are returned as errors, never as a denial.
func (l *FixedWindowLimiter) Consume(ctx context.Context, key string, opts Options) (Result, error) {
	opts = opts.withDefaults(l.defaults)
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	counterKey := keyspace.RateLimit(opts.Namespace).Key(key)

	count, ttl, err := l.increment(ctx, counterKey, opts.Window)
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: %w", err)
	}

	res := Result{
		Success: count <= opts.Limit,
		Limit:   opts.Limit,
		ResetIn: resetIn(ttl, opts.Window),
	}

	if res.Success {
		res.Remaining = opts.Limit - count
	}

	return res, nil
}

// Allow consumes one unit from key under the default options and reports
// whether the request is within quota.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	res, err := l.Consume(ctx, key, Options{})
	if err != nil {
		return false, err
	}

	return res.Success, nil
}

// Reset deletes the counter for key so the next request starts a new window.
func (l *FixedWindowLimiter) Reset(ctx context.Context, key string, opts Options) error {
	opts = opts.withDefaults(l.defaults)
	if err := opts.Validate(); err != nil {
		return err
	}

	if err := l.store.Del(ctx, keyspace.RateLimit(opts.Namespace).Key(key)); err != nil {
		return fmt.Errorf("ratelimit: reset: %w", err)
	}

	return nil
}

// increment bumps the counter and makes sure it carries a TTL. Stores that
// can do this server-side get a single round trip.
func (l *FixedWindowLimiter) increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if counter, ok := l.store.(kv.AtomicCounter); ok {
		return counter.IncrWithExpiry(ctx, key, window)
	}

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return 0, 0, err
	}

	// Only the request that created the counter starts the window. Setting it
	// whenever 1 is observed keeps the two steps coupled.
	if count == 1 {
		if _, err := l.store.Expire(ctx, key, window); err != nil {
			return 0, 0, err
		}
	}

	ttl, err := l.store.TTL(ctx, key)
	if err != nil {
		return 0, 0, err
	}

	// A counter without TTL means an earlier creator died between INCR and
	// EXPIRE. Without a TTL it would deny forever.
	if ttl == kv.TTLPersistent {
		if _, err := l.store.Expire(ctx, key, window); err != nil {
			return 0, 0, err
		}

		ttl = window
	}

	return count, ttl, nil
}

// resetIn converts a TTL into whole seconds, capped at the window. Missing or
// persistent TTLs report the full window.
func resetIn(ttl, window time.Duration) time.Duration {
	if ttl <= 0 {
		return window
	}

	ttl = (ttl + time.Second - 1).Truncate(time.Second)
	if ttl > window {
		return window
	}

	return ttl
}
