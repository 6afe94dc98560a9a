package container_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/audit"
	auditstore "github.com/Ducksans/gg-real-sub001/internal/audit/store"
	"github.com/Ducksans/gg-real-sub001/internal/container"
	"github.com/Ducksans/gg-real-sub001/internal/messaging"
	"github.com/Ducksans/gg-real-sub001/internal/ratelimit"
	"github.com/alicebob/miniredis/v2"
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(mr *miniredis.Miniredis) *container.Options {
	return &container.Options{
		Port:          8888,
		LogFormat:     "console",
		RedisURL:      "redis://" + mr.Addr(),
		RedisTimeout:  "1s",
		SessionTTL:    3600,
		RateWindow:    60,
		RateLimit:     2,
		RateNamespace: "auth",
	}
}

func newInjector(t *testing.T, opts *container.Options) *do.Injector {
	t.Helper()

	injector := do.New()
	do.ProvideValue(injector, opts)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.SessionPackage(injector)
	container.RateLimitPackage(injector)
	container.PublisherGroupPackage(injector)
	container.PostgresPackage(injector)
	container.HTTPPackage(injector)

	t.Cleanup(func() { _ = injector.Shutdown() })

	return injector
}

func TestHTTPPackage(t *testing.T) {
	mr := miniredis.RunT(t)
	injector := newInjector(t, testOptions(mr))

	router := do.MustInvoke[*chi.Mux](injector)
	_ = do.MustInvoke[huma.API](injector)

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sessions",
			bytes.NewBufferString(`{"userId":"user-42","role":"viewer"}`))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		return w
	}

	t.Run("sessions are stored in redis", func(t *testing.T) {
		w := post()

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		key := "session:" + strings.TrimPrefix(w.Header().Get("Location"), "/sessions/")

		assert.True(t, mr.Exists(key))
		assert.Equal(t, time.Hour, mr.TTL(key))
	})

	t.Run("the auth scope follows the configured limit", func(t *testing.T) {
		w := post()

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))

		assert.Equal(t, http.StatusTooManyRequests, post().Code)
	})

	t.Run("health is not limited", func(t *testing.T) {
		for range 5 {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"redis":"healthy"`)
		}
	})
}

func TestRateLimitPackage(t *testing.T) {
	t.Run("rejects a reserved namespace", func(t *testing.T) {
		opts := testOptions(miniredis.RunT(t))
		opts.RateNamespace = "session"

		_, err := do.Invoke[*ratelimit.FixedWindowLimiter](newInjector(t, opts))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "reserved")
	})

	t.Run("auth policy uses the limiter defaults", func(t *testing.T) {
		policy := do.MustInvoke[*ratelimit.PolicyLimiter](newInjector(t, testOptions(miniredis.RunT(t))))

		assert.Equal(t, ratelimit.Options{Window: time.Minute, Limit: 2, Namespace: "auth"}, policy.Limiter().Defaults())
	})
}

func TestPostgresPackage_WithoutDatabase(t *testing.T) {
	injector := newInjector(t, testOptions(miniredis.RunT(t)))

	s, err := do.Invoke[audit.Store](injector)

	require.NoError(t, err)
	assert.IsType(t, &auditstore.Noop{}, s)
}

func TestConsumerGroupPackage(t *testing.T) {
	injector := newInjector(t, testOptions(miniredis.RunT(t)))
	container.ConsumerGroupPackage(injector)

	group, err := do.Invoke[*messaging.ConsumerGroup](injector)

	require.NoError(t, err)
	assert.Equal(t, len(audit.Topics()), group.Len())
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		logger, err := container.NewLogger(format)

		require.NoError(t, err, format)
		assert.NotNil(t, logger)
	}

	_, err := container.NewLogger("xml")
	assert.Error(t, err)
}

func TestOptions_LimiterOptions(t *testing.T) {
	opts := &container.Options{RateWindow: 30, RateLimit: 10, RateNamespace: "api"}

	assert.Equal(t, ratelimit.Options{Window: 30 * time.Second, Limit: 10, Namespace: "api"}, opts.LimiterOptions())
}
