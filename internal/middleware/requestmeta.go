package middleware

import (
	"net"
	"strings"

	"github.com/Ducksans/gg-real-sub001/internal/handlers"
	"github.com/danielgtaylor/huma/v2"
)

// RequestMeta adds the client IP and user agent to the request context.
func RequestMeta(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := handlers.RequestMeta{
			ClientIP:  clientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
		}

		next(huma.WithContext(ctx, handlers.ContextWithRequestMeta(ctx.Context(), meta)))
	}
}

// clientIP prefers proxy headers, then the peer address.
func clientIP(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	addr := ctx.RemoteAddr()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}

// metaFrom returns the metadata stored by RequestMeta, deriving it when the
// middleware did not run.
func metaFrom(ctx huma.Context) handlers.RequestMeta {
	meta := handlers.RequestMetaFromContext(ctx.Context())
	if meta.ClientIP == "" {
		meta.ClientIP = clientIP(ctx)
		meta.UserAgent = ctx.Header("User-Agent")
	}

	return meta
}
