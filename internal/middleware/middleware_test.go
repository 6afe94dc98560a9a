package middleware_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/audit"
	"github.com/Ducksans/gg-real-sub001/internal/handlers"
	"github.com/Ducksans/gg-real-sub001/internal/kv"
	"github.com/Ducksans/gg-real-sub001/internal/ratelimit"
	"github.com/Ducksans/gg-real-sub001/internal/session"
	"github.com/Ducksans/gg-real-sub001/internal/store"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

var errDown = fmt.Errorf("%w: dial tcp 127.0.0.1:6379: connection refused", kv.ErrUnavailable)

// downStore fails every operation like an unreachable Redis.
type downStore struct{}

func (downStore) Incr(context.Context, string) (int64, error) { return 0, errDown }
func (downStore) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, errDown
}
func (downStore) TTL(context.Context, string) (time.Duration, error)       { return 0, errDown }
func (downStore) Set(context.Context, string, []byte, time.Duration) error { return errDown }
func (downStore) Get(context.Context, string) ([]byte, error)              { return nil, errDown }
func (downStore) Del(context.Context, string) error                        { return errDown }

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Publish(_ string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, msg := range msgs {
		var event audit.Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			return err
		}

		p.events = append(p.events, event)
	}

	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type output struct {
	Body struct {
		ClientIP  string `json:"clientIp"`
		UserAgent string `json:"userAgent"`
		UserID    string `json:"userId,omitempty"`
	}
}

func echo(ctx context.Context, _ *struct{}) (*output, error) {
	meta := handlers.RequestMetaFromContext(ctx)

	out := &output{}
	out.Body.ClientIP = meta.ClientIP
	out.Body.UserAgent = meta.UserAgent

	if p, ok := handlers.PrincipalFromContext(ctx); ok {
		out.Body.UserID = p.Session.UserID
	}

	return out, nil
}

type server struct {
	router *chi.Mux
	api    huma.API
}

func newServer(t *testing.T) *server {
	t.Helper()

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))

	return &server{router: router, api: api}
}

func (s *server) routes() {
	huma.Register(s.api, huma.Operation{Method: http.MethodGet, Path: "/read"}, echo)
	huma.Register(s.api, huma.Operation{Method: http.MethodPost, Path: "/write"}, echo)
	huma.Register(s.api, huma.Operation{
		Method:   http.MethodGet,
		Path:     "/open",
		Metadata: map[string]any{ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true}},
	}, echo)
	huma.Register(s.api, huma.Operation{
		Method: http.MethodGet,
		Path:   "/items/{id}",
		Metadata: map[string]any{ratelimit.MetadataKey: ratelimit.EndpointConfig{
			Limits: []ratelimit.Options{{Window: time.Minute, Limit: 2, Namespace: "http"}},
		}},
	}, func(ctx context.Context, _ *struct {
		ID string `path:"id"`
	}) (*output, error) {
		return echo(ctx, nil)
	})
	huma.Register(s.api, huma.Operation{
		Method:   http.MethodGet,
		Path:     "/private",
		Security: []map[string][]string{{handlers.BearerScheme: {}}},
	}, echo)
}

func (s *server) do(method, path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) output {
	t.Helper()

	var out output
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out.Body))

	return out
}

func policyLimiter(st ratelimit.Store, policy *ratelimit.Policy) *ratelimit.PolicyLimiter {
	return ratelimit.NewPolicyLimiter(ratelimit.NewFixedWindowLimiter(st, ratelimit.DefaultOptions()), policy)
}

func globalPolicy(limit int64) *ratelimit.Policy {
	return &ratelimit.Policy{Limits: map[ratelimit.Scope][]ratelimit.Options{
		ratelimit.ScopeGlobal: {{Window: time.Minute, Limit: limit, Namespace: "http"}},
	}}
}

func newSessionStore(t *testing.T) *session.Store {
	t.Helper()

	sessions := session.NewStore(store.NewMemoryStore())
	require.NoError(t, sessions.Set(context.Background(), "valid-id", session.StoredSession{
		UserID: "user-42",
		Role:   session.RoleViewer,
	}))

	return sessions
}
