package handlers

import (
	"net/http"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/ratelimit"
	"github.com/danielgtaylor/huma/v2"
)

// BearerScheme names the OpenAPI security scheme of session-authenticated
// operations.
const BearerScheme = "bearer"

var authLimits = ratelimit.EndpointConfig{Scope: ratelimit.ScopeAuth}

// RegisterRoutes registers the session and rate limit routes.
func RegisterRoutes(api huma.API, sessions *SessionHandler, limits *RateLimitHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/sessions",
		Summary:       "Create session",
		Description:   "Stores a new session under a generated id.",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusCreated,
		Metadata:      map[string]any{ratelimit.MetadataKey: authLimits},
	}, sessions.CreateSession)

	huma.Register(api, huma.Operation{
		OperationID: "put-session",
		Method:      http.MethodPut,
		Path:        "/sessions/{id}",
		Summary:     "Overwrite session",
		Tags:        []string{"Sessions"},
		Metadata:    map[string]any{ratelimit.MetadataKey: authLimits},
	}, sessions.PutSession)

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}",
		Summary:     "Get session",
		Tags:        []string{"Sessions"},
		Metadata:    map[string]any{ratelimit.MetadataKey: authLimits},
	}, sessions.GetSession)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-session",
		Method:        http.MethodDelete,
		Path:          "/sessions/{id}",
		Summary:       "Clear session",
		Description:   "Removes a session. Clearing an unknown session succeeds.",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusNoContent,
	}, sessions.DeleteSession)

	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current session",
		Description: "Returns the session named by the bearer token.",
		Tags:        []string{"Sessions"},
		Security:    []map[string][]string{{BearerScheme: {}}},
	}, sessions.Me)

	// Limiter endpoints get their own ceiling instead of the write scope.
	huma.Register(api, huma.Operation{
		OperationID: "consume-rate-limit",
		Method:      http.MethodPost,
		Path:        "/ratelimit/{key}",
		Summary:     "Consume one request",
		Description: "Counts one request against key in the current fixed window.",
		Tags:        []string{"Rate limits"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.Options{{Window: time.Minute, Limit: 1000, Namespace: "http"}},
			},
		},
	}, limits.Consume)

	huma.Register(api, huma.Operation{
		OperationID:   "reset-rate-limit",
		Method:        http.MethodDelete,
		Path:          "/ratelimit/{key}",
		Summary:       "Reset counter",
		Tags:          []string{"Rate limits"},
		DefaultStatus: http.StatusNoContent,
	}, limits.Reset)
}
