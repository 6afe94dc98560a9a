// Package session stores authenticated-session records in the shared
// key-value store. Records expire through the store's TTL; the Expires field
// carried inside a record is advisory and may drift from it.
package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no live session exists for an id.
	ErrNotFound = errors.New("session: not found")
	// ErrInvalid is returned for records that cannot be stored as given.
	ErrInvalid = errors.New("session: invalid record")
	// ErrSerialization is returned when a record cannot be encoded.
	ErrSerialization = errors.New("session: serialization failed")
	// ErrDeserialization is returned when a stored payload is not a valid record.
	ErrDeserialization = errors.New("session: deserialization failed")
)

// Role is the authorization level carried by a session.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleViewer, RoleEditor, RoleAdmin:
		return true
	default:
		return false
	}
}

// StoredSession is the record kept for an authenticated session.
type StoredSession struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	// Expires is epoch milliseconds. It is informational only.
	Expires  int64    `json:"expires"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Validate checks the record invariants.
func (s StoredSession) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalid)
	}

	if !s.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalid, s.Role)
	}

	return nil
}
