package health

import (
	"context"
	"net/http"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/ratelimit"
	"github.com/Ducksans/gg-real-sub001/internal/store"
	"github.com/danielgtaylor/huma/v2"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// StoreChecker checks the KV store through the connection manager, which
// reopens a closed client before pinging.
type StoreChecker struct {
	manager *store.Manager
}

// NewStoreChecker creates a new store health checker.
func NewStoreChecker(manager *store.Manager) *StoreChecker {
	return &StoreChecker{manager: manager}
}

// Ping checks store connectivity.
func (c *StoreChecker) Ping(ctx context.Context) error {
	_, err := c.manager.Ensure(ctx)

	return err
}

// Handler handles health check operations.
type Handler struct {
	redis Checker
}

// NewHandler creates a new health handler.
func NewHandler(redis Checker) *Handler {
	return &Handler{redis: redis}
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status    string `json:"status"`
		Redis     string `json:"redis"`
		LatencyMs int64  `json:"latencyMs"`
	}
}

// Check reports "ok" when the store answers and "degraded" otherwise. The
// endpoint itself stays up either way.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = "ok"
	resp.Body.Redis = "healthy"

	start := time.Now()
	err := h.redis.Ping(ctx)
	resp.Body.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		resp.Body.Redis = "unhealthy"
		resp.Body.Status = "degraded"
	}

	return resp, nil
}

// RegisterRoutes registers health check routes. Probes are not rate limited.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
		},
	}, h.Check)
}
