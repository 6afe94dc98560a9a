package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Policy assigns one or more windows to each scope.
type Policy struct {
	Limits map[Scope][]Options
}

// DefaultPolicy is the HTTP policy used when none is configured: a generous
// global ceiling, with tighter limits for writes and the auth endpoints.
func DefaultPolicy() *Policy {
	return &Policy{
		Limits: map[Scope][]Options{
			ScopeGlobal: {{Window: time.Minute, Limit: 600, Namespace: "http"}},
			ScopeRead:   {{Window: time.Minute, Limit: 300, Namespace: "http"}},
			ScopeWrite:  {{Window: time.Minute, Limit: 60, Namespace: "http"}},
			ScopeAuth:   {{Window: time.Minute, Limit: DefaultLimit, Namespace: DefaultNamespace}},
		},
	}
}

// LimitExceeded describes the window that denied a request.
type LimitExceeded struct {
	Scope   Scope
	Options Options
	Result  Result
}

// PolicyLimiter enforces a Policy for a set of resolved scopes.
type PolicyLimiter struct {
	limiter *FixedWindowLimiter
	policy  *Policy
}

// NewPolicyLimiter creates a new policy-based rate limiter.
func NewPolicyLimiter(limiter *FixedWindowLimiter, policy *Policy) *PolicyLimiter {
	return &PolicyLimiter{
		limiter: limiter,
		policy:  policy,
	}
}

// Allow consumes one unit from every window of every scope. It returns the
// most restrictive result seen; exceeded is non-nil when a window denied the
// request. Evaluation stops at the first denial.
func (l *PolicyLimiter) Allow(ctx context.Context, clientKey string, scopes []Scope) (Result, *LimitExceeded, error) {
	var tightest Result

	for _, scope := range scopes {
		exceeded, err := l.consume(ctx, clientKey, scope, l.policy.Limits[scope], &tightest)
		if err != nil {
			return Result{}, nil, err
		}

		if exceeded != nil {
			return tightest, exceeded, nil
		}
	}

	return allowed(tightest), nil, nil
}

// AllowCustom applies endpoint-specific windows. Counters are keyed by the
// route template, so every request matching the same route pattern shares
// them per client.
func (l *PolicyLimiter) AllowCustom(
	ctx context.Context, clientKey, route string, limits []Options,
) (Result, *LimitExceeded, error) {
	var tightest Result

	exceeded, err := l.consume(ctx, clientKey, Scope("custom:"+route), limits, &tightest)
	if err != nil {
		return Result{}, nil, err
	}

	if exceeded != nil {
		return tightest, exceeded, nil
	}

	return allowed(tightest), nil, nil
}

// consume runs every window of one scope, keeping the result with the least
// quota left in tightest.
func (l *PolicyLimiter) consume(
	ctx context.Context, clientKey string, scope Scope, limits []Options, tightest *Result,
) (*LimitExceeded, error) {
	for _, opts := range limits {
		res, err := l.limiter.Consume(ctx, l.buildKey(clientKey, scope, opts), opts)
		if err != nil {
			return nil, err
		}

		if !res.Success {
			*tightest = res

			return &LimitExceeded{Scope: scope, Options: opts, Result: res}, nil
		}

		if tightest.Limit == 0 || res.Remaining < tightest.Remaining {
			*tightest = res
		}
	}

	return nil, nil
}

// allowed marks an empty result (no windows applied) as a success.
func allowed(res Result) Result {
	res.Success = true

	return res
}

// buildKey creates a unique key for the client, scope, and window combination.
func (l *PolicyLimiter) buildKey(clientKey string, scope Scope, opts Options) string {
	window := opts.Window
	if window == 0 {
		window = l.limiter.Defaults().Window
	}

	return fmt.Sprintf("%s:%s:%d", clientKey, scope, window.Milliseconds())
}

// Limiter returns the underlying fixed window limiter.
func (l *PolicyLimiter) Limiter() *FixedWindowLimiter {
	return l.limiter
}
