package handlers

import (
	"context"

	"github.com/Ducksans/gg-real-sub001/internal/session"
)

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata for auditing and rate limiting.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

type principalKey struct{}

// Principal is the session that authenticated a request.
type Principal struct {
	SessionID string
	Session   *session.StoredSession
}

// ContextWithPrincipal adds the authenticated session to context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated session, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)

	return p, ok && p.Session != nil
}
