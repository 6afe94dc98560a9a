package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/kv"
)

// ErrNotInteger is returned by Incr when the key holds a non-numeric value.
var ErrNotInteger = errors.New("store: value is not an integer")

type memoryItem struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is an in-memory implementation of kv.Store. Expiry is evaluated
// lazily against an injectable clock, which makes TTL behaviour testable
// without sleeping.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	if err := checkContext(ctx, "incr"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.lookup(key)

	var n int64

	if ok {
		parsed, err := strconv.ParseInt(string(item.value), 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}

		n = parsed
	}

	n++
	item.value = []byte(strconv.FormatInt(n, 10))
	m.items[key] = item

	return n, nil
}

func (m *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := checkContext(ctx, "expire"); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.lookup(key)
	if !ok {
		return false, nil
	}

	if ttl <= 0 {
		delete(m.items, key)

		return true, nil
	}

	item.expiresAt = m.now().Add(ttl)
	m.items[key] = item

	return true, nil
}

func (m *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := checkContext(ctx, "ttl"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.lookup(key)

	switch {
	case !ok:
		return kv.TTLMissing, nil
	case item.expiresAt.IsZero():
		return kv.TTLPersistent, nil
	default:
		return item.expiresAt.Sub(m.now()), nil
	}
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := checkContext(ctx, "set"); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}

	m.items[key] = item

	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkContext(ctx, "get"); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.lookup(key)
	if !ok {
		return nil, kv.ErrNotFound
	}

	return append([]byte(nil), item.value...), nil
}

func (m *MemoryStore) Del(ctx context.Context, key string) error {
	if err := checkContext(ctx, "del"); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)

	return nil
}

// Len returns the number of live keys.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0

	for key := range m.items {
		if _, ok := m.lookup(key); ok {
			n++
		}
	}

	return n
}

// lookup returns the live item for key, dropping it when expired.
// Callers must hold m.mu.
func (m *MemoryStore) lookup(key string) (memoryItem, bool) {
	item, ok := m.items[key]
	if !ok {
		return memoryItem{}, false
	}

	if !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt) {
		delete(m.items, key)

		return memoryItem{}, false
	}

	return item, true
}

// checkContext reports a cancelled or expired context the way a remote store
// would: as unavailability.
func checkContext(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", kv.ErrUnavailable, op, err)
	}

	return nil
}

var _ kv.Store = (*MemoryStore)(nil)
