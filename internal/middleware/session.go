package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Ducksans/gg-real-sub001/internal/handlers"
	"github.com/Ducksans/gg-real-sub001/internal/kv"
	"github.com/Ducksans/gg-real-sub001/internal/session"
	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
)

// SessionReader looks sessions up by id.
type SessionReader interface {
	Get(ctx context.Context, id string) (*session.StoredSession, error)
}

// Sessions resolves "Authorization: Bearer <session id>" into a
// handlers.Principal. Operations declaring the bearer security scheme
// require a live session: they get 401 without one and 503 when the store
// cannot be reached. Elsewhere the lookup is best effort.
func Sessions(api huma.API, sessions SessionReader, logger *zap.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		required := requiresSession(ctx.Operation())

		id := bearerToken(ctx.Header("Authorization"))
		if id == "" {
			if required {
				_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "missing bearer session")

				return
			}

			next(ctx)

			return
		}

		stored, err := sessions.Get(ctx.Context(), id)

		switch {
		case err == nil:
			p := handlers.Principal{SessionID: id, Session: stored}
			ctx = huma.WithContext(ctx, handlers.ContextWithPrincipal(ctx.Context(), p))
		case !required:
			if !errors.Is(err, session.ErrNotFound) {
				logger.Debug("optional session lookup failed", zap.Error(err))
			}
		case errors.Is(err, session.ErrNotFound):
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "session expired or unknown")

			return
		case errors.Is(err, kv.ErrUnavailable):
			logger.Warn("session store unavailable", zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusServiceUnavailable, "session store unavailable")

			return
		default:
			logger.Error("session lookup failed", zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error")

			return
		}

		next(ctx)
	}
}

func requiresSession(op *huma.Operation) bool {
	if op == nil {
		return false
	}

	for _, req := range op.Security {
		if _, ok := req[handlers.BearerScheme]; ok {
			return true
		}
	}

	return false
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
