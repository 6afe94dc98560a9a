package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/ratelimit"
	"go.uber.org/zap"
)

// Limiter is the part of ratelimit.FixedWindowLimiter used by the HTTP layer.
type Limiter interface {
	Consume(ctx context.Context, key string, opts ratelimit.Options) (ratelimit.Result, error)
	Reset(ctx context.Context, key string, opts ratelimit.Options) error
}

// RateLimitHandler exposes the fixed window limiter over HTTP.
type RateLimitHandler struct {
	limiter Limiter
	logger  *zap.Logger
}

// NewRateLimitHandler creates a new rate limit handler.
func NewRateLimitHandler(limiter Limiter, logger *zap.Logger) *RateLimitHandler {
	return &RateLimitHandler{limiter: limiter, logger: logger}
}

func (h *RateLimitHandler) Consume(ctx context.Context, req *ConsumeRequest) (*ConsumeResponse, error) {
	var opts ratelimit.Options
	if req.Body != nil {
		opts = ratelimit.Options{
			Window:    time.Duration(req.Body.WindowSeconds) * time.Second,
			Limit:     req.Body.Limit,
			Namespace: req.Body.Namespace,
		}
	}

	res, err := h.limiter.Consume(ctx, req.Key, opts)
	if err != nil {
		return nil, statusError(h.logger, "consume", err)
	}

	resp := &ConsumeResponse{Status: http.StatusOK}
	resp.Headers = RateLimitHeadersFor(res)
	resp.Body.Success = res.Success
	resp.Body.Remaining = res.Remaining
	resp.Body.Limit = res.Limit
	resp.Body.ResetIn = res.ResetSeconds()

	if !res.Success {
		resp.Status = http.StatusTooManyRequests
	}

	return resp, nil
}

func (h *RateLimitHandler) Reset(ctx context.Context, req *ResetRequest) (*struct{}, error) {
	if err := h.limiter.Reset(ctx, req.Key, ratelimit.Options{Namespace: req.Namespace}); err != nil {
		return nil, statusError(h.logger, "reset", err)
	}

	return nil, nil
}

// RateLimitHeadersFor renders a limiter result as response headers.
// Retry-After is only set when the request was denied.
func RateLimitHeadersFor(res ratelimit.Result) RateLimitHeaders {
	h := RateLimitHeaders{
		Limit:     res.Limit,
		Remaining: res.Remaining,
		Reset:     res.ResetSeconds(),
	}

	if !res.Success {
		h.RetryAfter = strconv.FormatInt(res.ResetSeconds(), 10)
	}

	return h
}
