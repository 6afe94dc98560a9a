package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/kv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultURL is used when no endpoint is configured.
const DefaultURL = "redis://localhost:6379/0"

const defaultDialTimeout = 5 * time.Second

// Config describes how to reach the shared store.
type Config struct {
	URL         string
	DialTimeout time.Duration
	// OpTimeout bounds every store call that has no tighter caller deadline.
	OpTimeout time.Duration
}

// Manager owns the single shared Redis client of the process.
// The client is created on first use and can be reopened after Close.
type Manager struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	client *redis.Client
}

// NewManager creates a connection manager. No connection is made until the
// client is first requested.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}

	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}

	return &Manager{cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Client returns the shared client, creating it on first use. Creation starts
// connecting in the background and never blocks on the network.
func (m *Manager) Client() (*redis.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client, nil
	}

	opts, err := redis.ParseURL(m.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("store: invalid url: %w", err)
	}

	opts.DialTimeout = m.cfg.DialTimeout
	// Per-call deadlines must reach the socket, otherwise a hung server holds
	// callers for the full read timeout.
	opts.ContextTimeoutEnabled = true

	client := redis.NewClient(opts)
	client.AddHook(&errorObserver{logger: m.logger})

	m.client = client

	go m.warmUp(client, opts.Addr)

	return client, nil
}

// Ensure returns a client that has answered a ping. A client that reports
// itself closed is replaced by a fresh one first.
func (m *Manager) Ensure(ctx context.Context) (*redis.Client, error) {
	client, err := m.Client()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kv.ErrUnavailable, err)
	}

	if m.cfg.OpTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, m.cfg.OpTimeout)
		defer cancel()
	}

	err = client.Ping(ctx).Err()
	if errors.Is(err, redis.ErrClosed) {
		client, err = m.Replace(client)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", kv.ErrUnavailable, err)
		}

		err = client.Ping(ctx).Err()
	}

	if err != nil {
		return nil, fmt.Errorf("%w: ping: %w", kv.ErrUnavailable, err)
	}

	return client, nil
}

// Close closes the shared client. A later Client or Ensure call reopens it.
// A client already closed by another owner is not an error.
func (m *Manager) Close() error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()

	if client == nil {
		return nil
	}

	if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}

	return nil
}

// Shutdown closes the client when the container shuts down.
func (m *Manager) Shutdown() error {
	return m.Close()
}

// Replace drops stale when it is still the shared client and returns the
// current one, creating it if needed. Concurrent callers holding the same
// stale client end up sharing one replacement.
func (m *Manager) Replace(stale *redis.Client) (*redis.Client, error) {
	m.mu.Lock()
	if m.client == stale {
		m.client = nil
	}
	m.mu.Unlock()

	return m.Client()
}

func (m *Manager) warmUp(client *redis.Client, addr string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		m.logger.Warn("store not reachable yet", zap.String("addr", addr), zap.Error(err))

		return
	}

	m.logger.Info("store connected", zap.String("addr", addr))
}

// errorObserver logs connection and command failures. It never alters the
// outcome of a call.
type errorObserver struct {
	logger *zap.Logger
}

func (o *errorObserver) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			o.logger.Error("store dial failed", zap.String("addr", addr), zap.Error(err))
		}

		return conn, err
	}
}

func (o *errorObserver) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !isReply(err) {
			o.logger.Warn("store command failed", zap.String("cmd", cmd.Name()), zap.Error(err))
		}

		return err
	}
}

func (o *errorObserver) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}
