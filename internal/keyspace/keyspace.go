// Package keyspace maps logical identifiers onto prefixed store keys so that
// sessions and rate limit counters never share a key.
package keyspace

import "strings"

const (
	// SessionNamespace is the prefix family used for session records.
	SessionNamespace = "session"
	// DefaultRateLimitNamespace is used when a caller does not pick one.
	DefaultRateLimitNamespace = "auth"

	separator = ":"
)

// Sessions names session keys: "session:<id>".
var Sessions = New(SessionNamespace)

// Namer prefixes identifiers with a fixed namespace.
type Namer struct {
	prefix string
}

// New creates a Namer for the given prefix. A trailing separator is added
// when missing.
func New(prefix string) Namer {
	if !strings.HasSuffix(prefix, separator) {
		prefix += separator
	}

	return Namer{prefix: prefix}
}

// RateLimit names rate limit counters: "<namespace>:ratelimit:<key>".
// An empty namespace falls back to DefaultRateLimitNamespace.
func RateLimit(namespace string) Namer {
	if namespace == "" {
		namespace = DefaultRateLimitNamespace
	}

	return New(namespace + separator + "ratelimit")
}

// Key returns the namespaced key for id. Keys that already carry the prefix
// are returned unchanged, so Key(Key(id)) == Key(id).
func (n Namer) Key(id string) string {
	if strings.HasPrefix(id, n.prefix) {
		return id
	}

	return n.prefix + id
}

// Trim strips the prefix from a namespaced key.
func (n Namer) Trim(key string) string {
	return strings.TrimPrefix(key, n.prefix)
}

// Prefix returns the prefix including its trailing separator.
func (n Namer) Prefix() string {
	return n.prefix
}
