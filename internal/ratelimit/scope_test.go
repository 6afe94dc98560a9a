package ratelimit_test

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"mime/multipart"
	"net/url"
	"testing"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/ratelimit"
	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMultipartNotSupported = errors.New("multipart not supported in mock")

// mockHumaContext implements huma.Context for testing scope resolution.
type mockHumaContext struct {
	method    string
	operation *huma.Operation
}

func (m *mockHumaContext) Operation() *huma.Operation        { return m.operation }
func (m *mockHumaContext) Context() context.Context          { return context.Background() }
func (m *mockHumaContext) TLS() *tls.ConnectionState         { return nil }
func (m *mockHumaContext) Version() huma.ProtoVersion        { return huma.ProtoVersion{} }
func (m *mockHumaContext) Method() string                    { return m.method }
func (m *mockHumaContext) Host() string                      { return "" }
func (m *mockHumaContext) RemoteAddr() string                { return "" }
func (m *mockHumaContext) URL() url.URL                      { return url.URL{} }
func (m *mockHumaContext) Param(_ string) string             { return "" }
func (m *mockHumaContext) Query(_ string) string             { return "" }
func (m *mockHumaContext) Header(_ string) string            { return "" }
func (m *mockHumaContext) EachHeader(_ func(string, string)) {}
func (m *mockHumaContext) BodyReader() io.Reader             { return nil }
func (m *mockHumaContext) GetMultipartForm() (*multipart.Form, error) {
	return nil, errMultipartNotSupported
}
func (m *mockHumaContext) SetReadDeadline(_ time.Time) error { return nil }
func (m *mockHumaContext) SetStatus(_ int)                   {}
func (m *mockHumaContext) Status() int                       { return 0 }
func (m *mockHumaContext) AppendHeader(_, _ string)          {}
func (m *mockHumaContext) SetHeader(_, _ string)             {}
func (m *mockHumaContext) BodyWriter() io.Writer             { return nil }

func withConfig(cfg any) *huma.Operation {
	return &huma.Operation{Metadata: map[string]any{ratelimit.MetadataKey: cfg}}
}

func TestScopeResolvers(t *testing.T) {
	t.Parallel()

	read := []ratelimit.Scope{ratelimit.ScopeGlobal, ratelimit.ScopeRead}
	write := []ratelimit.Scope{ratelimit.ScopeGlobal, ratelimit.ScopeWrite}
	auth := []ratelimit.Scope{ratelimit.ScopeGlobal, ratelimit.ScopeAuth}

	tests := []struct {
		name      string
		method    string
		operation *huma.Operation
		byMethod  []ratelimit.Scope
		byOp      []ratelimit.Scope
	}{
		{name: "GET", method: "GET", byMethod: read, byOp: read},
		{name: "HEAD", method: "HEAD", byMethod: read, byOp: read},
		{name: "OPTIONS", method: "OPTIONS", byMethod: read, byOp: read},
		{name: "POST", method: "POST", byMethod: write, byOp: write},
		{name: "PUT", method: "PUT", byMethod: write, byOp: write},
		{name: "DELETE", method: "DELETE", byMethod: write, byOp: write},
		{
			name: "operation without metadata", method: "POST",
			operation: &huma.Operation{}, byMethod: write, byOp: write,
		},
		{
			name: "unrelated metadata", method: "GET",
			operation: &huma.Operation{Metadata: map[string]any{"other": "value"}},
			byMethod:  read, byOp: read,
		},
		{
			name: "scope override", method: "POST",
			operation: withConfig(ratelimit.EndpointConfig{Scope: ratelimit.ScopeAuth}),
			byMethod:  write, byOp: auth,
		},
		{
			name: "custom limits without scope keep method scope", method: "GET",
			operation: withConfig(ratelimit.EndpointConfig{Limits: []ratelimit.Options{{Window: time.Minute, Limit: 10}}}),
			byMethod:  read, byOp: read,
		},
	}

	byMethod := ratelimit.NewMethodScopeResolver()
	byOp := ratelimit.NewOperationScopeResolver()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := &mockHumaContext{method: tt.method, operation: tt.operation}

			assert.Equal(t, tt.byMethod, byMethod.Resolve(ctx))
			assert.Equal(t, tt.byOp, byOp.Resolve(ctx))
		})
	}
}

func TestEndpointConfigFrom(t *testing.T) {
	t.Parallel()

	t.Run("missing", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, ratelimit.EndpointConfigFrom(&mockHumaContext{}))
		assert.Nil(t, ratelimit.EndpointConfigFrom(&mockHumaContext{operation: &huma.Operation{}}))
		assert.Nil(t, ratelimit.EndpointConfigFrom(&mockHumaContext{operation: withConfig("wrong type")}))
	})

	t.Run("present", func(t *testing.T) {
		t.Parallel()

		ctx := &mockHumaContext{operation: withConfig(ratelimit.EndpointConfig{Scope: ratelimit.ScopeRead, Disabled: true})}

		cfg := ratelimit.EndpointConfigFrom(ctx)

		require.NotNil(t, cfg)
		assert.Equal(t, ratelimit.ScopeRead, cfg.Scope)
		assert.True(t, cfg.Disabled)
	})
}
