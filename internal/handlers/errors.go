package handlers

import (
	"errors"

	"github.com/Ducksans/gg-real-sub001/internal/kv"
	"github.com/Ducksans/gg-real-sub001/internal/ratelimit"
	"github.com/Ducksans/gg-real-sub001/internal/session"
	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
)

// statusError maps store and validation failures to HTTP errors. Unexpected
// failures are logged and reported as 500.
func statusError(logger *zap.Logger, op string, err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return huma.Error404NotFound("session not found")
	case errors.Is(err, kv.ErrUnavailable):
		logger.Warn("store unavailable", zap.String("op", op), zap.Error(err))

		return huma.Error503ServiceUnavailable("store unavailable")
	case errors.Is(err, session.ErrInvalid),
		errors.Is(err, session.ErrSerialization),
		errors.Is(err, ratelimit.ErrInvalidOptions):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		logger.Error("request failed", zap.String("op", op), zap.Error(err))

		return huma.Error500InternalServerError("internal server error")
	}
}
