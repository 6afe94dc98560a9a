package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/keyspace"
	"github.com/Ducksans/gg-real-sub001/internal/kv"
)

// DefaultTTL applies when neither the caller nor the configuration sets one.
const DefaultTTL = 24 * time.Hour

// Backend is the part of kv.Store that sessions use.
type Backend interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
}

// Store reads and writes session records. Writes for the same id are
// last-write-wins; there is no compare-and-swap.
type Store struct {
	backend    Backend
	keys       keyspace.Namer
	defaultTTL time.Duration
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithDefaultTTL overrides DefaultTTL. Non-positive values are ignored.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithClock replaces time.Now when filling in the advisory expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a session store on top of backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		keys:       keyspace.Sessions,
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// DefaultTTL returns the TTL used by Set.
func (s *Store) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Set writes value under id with the default TTL. A zero Expires is filled
// with now plus the default TTL, so Get then returns the filled value.
func (s *Store) Set(ctx context.Context, id string, value StoredSession) error {
	return s.SetWithTTL(ctx, id, value, 0)
}

// SetWithTTL writes value under id, replacing any existing record. A
// non-positive ttl means the default. A zero Expires is filled with now+ttl.
func (s *Store) SetWithTTL(ctx context.Context, id string, value StoredSession, ttl time.Duration) error {
	if id == "" {
		return fmt.Errorf("%w: empty session id", ErrInvalid)
	}

	if err := value.Validate(); err != nil {
		return err
	}

	if err := value.Metadata.Validate(); err != nil {
		return err
	}

	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	if value.Expires == 0 {
		value.Expires = s.now().Add(ttl).UnixMilli()
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	if err := s.backend.Set(ctx, s.keys.Key(id), data, ttl); err != nil {
		return fmt.Errorf("session: set: %w", err)
	}

	return nil
}

// Get returns the live record for id, or ErrNotFound. Store failures are
// reported as such and never as absence.
func (s *Store) Get(ctx context.Context, id string) (*StoredSession, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	data, err := s.backend.Get(ctx, s.keys.Key(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("session: get: %w", err)
	}

	var out StoredSession
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeserialization, err)
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeserialization, err)
	}

	return &out, nil
}

// Clear deletes the record for id. Clearing a missing id succeeds.
func (s *Store) Clear(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	if err := s.backend.Del(ctx, s.keys.Key(id)); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}

	return nil
}
