package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Ducksans/gg-real-sub001/internal/audit"
	"github.com/Ducksans/gg-real-sub001/internal/handlers"
	"github.com/Ducksans/gg-real-sub001/internal/kv"
	"github.com/Ducksans/gg-real-sub001/internal/ratelimit"
	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
)

// RateLimitOptions tune PolicyRateLimiter.
type RateLimitOptions struct {
	// FailOpen lets requests through when the counter store is unreachable.
	// Otherwise they are rejected with 503.
	FailOpen bool
	// Emitter receives a ratelimit.exceeded event per denial. May be nil.
	Emitter *audit.Emitter
}

// PolicyRateLimiter returns a Huma middleware enforcing limiter's policy on
// the scopes resolver picks for each request. Clients are identified by IP
// and User-Agent.
//
// Per-endpoint configuration is read from operation metadata under
// ratelimit.MetadataKey (see ratelimit.EndpointConfig).
func PolicyRateLimiter(
	api huma.API,
	limiter *ratelimit.PolicyLimiter,
	resolver ratelimit.ScopeResolver,
	opts RateLimitOptions,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		cfg := ratelimit.EndpointConfigFrom(ctx)
		if cfg != nil && cfg.Disabled {
			next(ctx)

			return
		}

		meta := metaFrom(ctx)
		key := clientKey(meta)

		res, exceeded, err := allow(ctx, limiter, resolver, cfg, key)
		if err != nil {
			if errors.Is(err, kv.ErrUnavailable) && opts.FailOpen {
				logger.Warn("rate limiter unavailable, allowing request",
					zap.String("path", operationPath(ctx)), zap.Error(err))
				next(ctx)

				return
			}

			writeLimiterError(api, ctx, err, logger)

			return
		}

		setHeaders(ctx, res)

		if exceeded != nil {
			deny(api, ctx, meta, exceeded, opts.Emitter, logger)

			return
		}

		next(ctx)
	}
}

func allow(
	ctx huma.Context,
	limiter *ratelimit.PolicyLimiter,
	resolver ratelimit.ScopeResolver,
	cfg *ratelimit.EndpointConfig,
	key string,
) (ratelimit.Result, *ratelimit.LimitExceeded, error) {
	if cfg != nil && len(cfg.Limits) > 0 {
		op := ctx.Operation()
		if op == nil {
			return ratelimit.Result{}, nil, errors.New("missing operation for endpoint limits")
		}

		// Counters follow the route template, not the concrete path.
		return limiter.AllowCustom(ctx.Context(), key, op.Path, cfg.Limits)
	}

	return limiter.Allow(ctx.Context(), key, resolver.Resolve(ctx))
}

func setHeaders(ctx huma.Context, res ratelimit.Result) {
	if res.Limit == 0 {
		return
	}

	h := handlers.RateLimitHeadersFor(res)
	ctx.SetHeader("X-RateLimit-Limit", strconv.FormatInt(h.Limit, 10))
	ctx.SetHeader("X-RateLimit-Remaining", strconv.FormatInt(h.Remaining, 10))
	ctx.SetHeader("X-RateLimit-Reset", strconv.FormatInt(h.Reset, 10))

	if h.RetryAfter != "" {
		ctx.SetHeader("Retry-After", h.RetryAfter)
	}
}

func deny(
	api huma.API,
	ctx huma.Context,
	meta handlers.RequestMeta,
	exceeded *ratelimit.LimitExceeded,
	emitter *audit.Emitter,
	logger *zap.Logger,
) {
	path := operationPath(ctx)
	window := exceeded.Options.Window

	logger.Warn("rate limit exceeded",
		zap.String("path", path),
		zap.String("method", ctx.Method()),
		zap.String("scope", string(exceeded.Scope)),
		zap.Int64("limit", exceeded.Result.Limit),
		zap.Duration("window", window),
		zap.String("client_ip", meta.ClientIP),
	)

	emitter.Emit(context.WithoutCancel(ctx.Context()),
		audit.NewEvent(audit.TopicRateLimitExceeded, string(exceeded.Scope)).
			WithClient(meta.ClientIP, meta.UserAgent).
			With("path", path).
			With("method", ctx.Method()).
			With("limit", strconv.FormatInt(exceeded.Result.Limit, 10)).
			With("window", window.String()),
	)

	msg := fmt.Sprintf("rate limit exceeded: %s scope allows %d requests per %s",
		exceeded.Scope, exceeded.Result.Limit, window)
	_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, msg)
}

func writeLimiterError(api huma.API, ctx huma.Context, err error, logger *zap.Logger) {
	if errors.Is(err, kv.ErrUnavailable) {
		logger.Warn("rate limiter unavailable", zap.String("path", operationPath(ctx)), zap.Error(err))
		_ = huma.WriteErr(api, ctx, http.StatusServiceUnavailable, "rate limiter unavailable")

		return
	}

	logger.Error("rate limit check failed", zap.String("path", operationPath(ctx)), zap.Error(err))
	_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error")
}

// clientKey hashes IP and User-Agent so raw addresses never reach the store.
func clientKey(meta handlers.RequestMeta) string {
	hash := sha256.Sum256([]byte(meta.ClientIP + "|" + meta.UserAgent))

	return hex.EncodeToString(hash[:])
}

func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}
