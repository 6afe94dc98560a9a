package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/keyspace"
)

const (
	DefaultWindow    = 60 * time.Second
	DefaultLimit     = 5
	DefaultNamespace = keyspace.DefaultRateLimitNamespace
)

// ErrInvalidOptions is returned for windows, limits or namespaces that
// cannot be enforced.
var ErrInvalidOptions = errors.New("ratelimit: invalid options")

// Options configures one fixed window. Zero fields take the limiter defaults.
type Options struct {
	Window    time.Duration
	Limit     int64
	Namespace string
}

// DefaultOptions returns 5 requests per 60 seconds in the "auth" namespace.
func DefaultOptions() Options {
	return Options{
		Window:    DefaultWindow,
		Limit:     DefaultLimit,
		Namespace: DefaultNamespace,
	}
}

func (o Options) withDefaults(def Options) Options {
	if o.Window == 0 {
		o.Window = def.Window
	}

	if o.Limit == 0 {
		o.Limit = def.Limit
	}

	if o.Namespace == "" {
		o.Namespace = def.Namespace
	}

	return o
}

// Validate checks that the options describe an enforceable window.
// Windows are whole seconds because the store expires keys per second.
func (o Options) Validate() error {
	switch {
	case o.Window < time.Second || o.Window%time.Second != 0:
		return fmt.Errorf("%w: window %s must be a positive whole number of seconds", ErrInvalidOptions, o.Window)
	case o.Limit <= 0:
		return fmt.Errorf("%w: limit %d must be positive", ErrInvalidOptions, o.Limit)
	case o.Namespace == keyspace.SessionNamespace:
		return fmt.Errorf("%w: namespace %q is reserved", ErrInvalidOptions, o.Namespace)
	default:
		return nil
	}
}

// Result is the outcome of consuming one unit of quota.
type Result struct {
	Success   bool
	Remaining int64
	Limit     int64
	// ResetIn is the whole-second time until the current window ends.
	ResetIn time.Duration
}

// ResetSeconds returns ResetIn in seconds.
func (r Result) ResetSeconds() int64 {
	return int64(r.ResetIn / time.Second)
}
