package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/audit"
	auditstore "github.com/Ducksans/gg-real-sub001/internal/audit/store"
	"github.com/Ducksans/gg-real-sub001/internal/handlers"
	"github.com/Ducksans/gg-real-sub001/internal/health"
	"github.com/Ducksans/gg-real-sub001/internal/messaging"
	"github.com/Ducksans/gg-real-sub001/internal/middleware"
	"github.com/Ducksans/gg-real-sub001/internal/ratelimit"
	"github.com/Ducksans/gg-real-sub001/internal/session"
	"github.com/Ducksans/gg-real-sub001/internal/store"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
)

// AuditConsumerGroup is the Redis stream consumer group reading audit events.
const AuditConsumerGroup = "audit"

// Options are the service settings. Every flag can also be set through a
// SERVICE_* environment variable, e.g. SERVICE_REDIS_URL.
type Options struct {
	Port          int    `default:"8888"                    help:"Port to listen on"                                 short:"p"`
	LogFormat     string `default:"json"                    help:"Log format: json or console"                       name:"log-format"`
	RedisURL      string `default:"redis://localhost:6379/0" help:"Redis connection URL"                              name:"redis-url"      short:"r"`
	RedisTimeout  string `default:"2s"                      help:"Per-operation Redis timeout"                       name:"redis-timeout"`
	SessionTTL    int    `default:"86400"                   help:"Default session lifetime in seconds"               name:"session-ttl"`
	RateWindow    int    `default:"60"                      help:"Fixed window length in seconds"                    name:"rate-window"`
	RateLimit     int    `default:"5"                       help:"Requests allowed per window"                       name:"rate-limit"`
	RateNamespace string `default:"auth"                    help:"Namespace of rate limit counters"                  name:"rate-namespace"`
	FailOpen      bool   `default:"false"                   help:"Allow requests when the rate limit store is down"  name:"fail-open"`
	DatabaseURL   string `default:""                        help:"PostgreSQL URL for the audit trail (log if empty)" name:"database-url"`
}

// LimiterOptions returns the configured fixed window.
func (o *Options) LimiterOptions() ratelimit.Options {
	return ratelimit.Options{
		Window:    time.Duration(o.RateWindow) * time.Second,
		Limit:     int64(o.RateLimit),
		Namespace: o.RateNamespace,
	}
}

// NewLogger builds the process logger for format "json" or "console".
func NewLogger(format string) (*zap.Logger, error) {
	switch format {
	case "json", "":
		return zap.NewProduction()
	case "console":
		return zap.NewDevelopment()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// LoggerPackage provides *zap.Logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		return NewLogger(do.MustInvoke[*Options](i).LogFormat)
	})
}

// RedisPackage provides the connection manager, its client, and the KV store.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*store.Manager, error) {
		opts := do.MustInvoke[*Options](i)

		timeout, err := time.ParseDuration(opts.RedisTimeout)
		if err != nil {
			return nil, fmt.Errorf("redis timeout: %w", err)
		}

		cfg := store.Config{URL: opts.RedisURL, OpTimeout: timeout}

		return store.NewManager(cfg, do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(i, func(i *do.Injector) (*redis.Client, error) {
		return do.MustInvoke[*store.Manager](i).Client()
	})

	do.Provide(i, func(i *do.Injector) (*store.RedisStore, error) {
		manager := do.MustInvoke[*store.Manager](i)

		return store.NewRedisStore(manager, manager.Config().OpTimeout), nil
	})
}

// SessionPackage provides the session store and id generator.
func SessionPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*session.Store, error) {
		opts := do.MustInvoke[*Options](i)
		ttl := time.Duration(opts.SessionTTL) * time.Second

		return session.NewStore(do.MustInvoke[*store.RedisStore](i), session.WithDefaultTTL(ttl)), nil
	})

	do.ProvideValue(i, session.IDGenerator(session.NewID))
}

// RateLimitPackage provides the fixed window limiter and the HTTP policy.
// The auth scope of the policy follows the configured window.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*ratelimit.FixedWindowLimiter, error) {
		defaults := do.MustInvoke[*Options](i).LimiterOptions()
		if err := defaults.Validate(); err != nil {
			return nil, err
		}

		return ratelimit.NewFixedWindowLimiter(do.MustInvoke[*store.RedisStore](i), defaults), nil
	})

	do.Provide(i, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		limiter := do.MustInvoke[*ratelimit.FixedWindowLimiter](i)

		policy := ratelimit.DefaultPolicy()
		policy.Limits[ratelimit.ScopeAuth] = []ratelimit.Options{limiter.Defaults()}

		return ratelimit.NewPolicyLimiter(limiter, policy), nil
	})
}

// PublisherGroupPackage provides the Redis stream publisher and the audit
// emitter on top of it.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: do.MustInvoke[*redis.Client](i),
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("redis stream publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (*audit.Emitter, error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return audit.NewEmitter(group.Publisher(), do.MustInvoke[*zap.Logger](i)), nil
	})
}

// Database owns the Postgres pool so the injector closes it on shutdown.
type Database struct {
	Pool *pgxpool.Pool
}

// Shutdown closes the pool.
func (d *Database) Shutdown() error {
	d.Pool.Close()

	return nil
}

var errNoDatabase = errors.New("no database configured")

// PostgresPackage provides the audit store: Postgres when a database URL is
// configured, a logging no-op store otherwise.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Database, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.DatabaseURL == "" {
			return nil, errNoDatabase
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("postgres: %w", err)
		}

		return &Database{Pool: pool}, nil
	})

	do.Provide(i, func(i *do.Injector) (audit.Store, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		if do.MustInvoke[*Options](i).DatabaseURL == "" {
			logger.Info("no database configured, audit events are only logged")

			return auditstore.NewNoop(logger), nil
		}

		db, err := do.Invoke[*Database](i)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pg := auditstore.NewPostgres(db.Pool)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}

		return pg, nil
	})
}

// ConsumerGroupPackage provides the audit consumers reading Redis streams.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        do.MustInvoke[*redis.Client](i),
			ConsumerGroup: AuditConsumerGroup,
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("redis stream subscriber: %w", err)
		}

		auditStore, err := do.Invoke[audit.Store](i)
		if err != nil {
			_ = subscriber.Close()

			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(audit.NewConsumers(subscriber, auditStore, logger)...)

		return group, nil
	})
}

// HTTPPackage provides the router and the huma API with middleware and
// routes registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		sessions := do.MustInvoke[*session.Store](i)
		emitter := do.MustInvoke[*audit.Emitter](i)

		config := huma.DefaultConfig("Sessions and Rate Limits", "1.0.0")
		config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
			handlers.BearerScheme: {
				Type:        "http",
				Scheme:      "bearer",
				Description: "Session id returned by POST /sessions",
			},
		}

		api := humachi.New(do.MustInvoke[*chi.Mux](i), config)
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.PolicyRateLimiter(api,
				do.MustInvoke[*ratelimit.PolicyLimiter](i),
				ratelimit.NewOperationScopeResolver(),
				middleware.RateLimitOptions{FailOpen: opts.FailOpen, Emitter: emitter},
				logger,
			),
			middleware.Sessions(api, sessions, logger),
		)

		handlers.RegisterRoutes(api,
			handlers.NewSessionHandler(sessions, do.MustInvoke[session.IDGenerator](i), emitter, logger),
			handlers.NewRateLimitHandler(do.MustInvoke[*ratelimit.FixedWindowLimiter](i), logger),
		)
		health.RegisterRoutes(api, health.NewHandler(health.NewStoreChecker(do.MustInvoke[*store.Manager](i))))

		return api, nil
	})
}
