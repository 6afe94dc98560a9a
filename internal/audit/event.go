package audit

import (
	"time"

	"github.com/google/uuid"
)

// Topics, one per event type.
const (
	TopicSessionCreated    = "session.created"
	TopicSessionCleared    = "session.cleared"
	TopicRateLimitExceeded = "ratelimit.exceeded"
)

// Topics lists every topic the audit trail consumes.
func Topics() []string {
	return []string{TopicSessionCreated, TopicSessionCleared, TopicRateLimitExceeded}
}

// Event is one audit record. Subject is the user id for session events and
// the limited scope for rate limit events. Session ids never appear in
// events since they are bearer credentials.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Subject    string            `json:"subject"`
	ClientIP   string            `json:"clientIp,omitempty"`
	UserAgent  string            `json:"userAgent,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// NewEvent creates an event with a fresh id, stamped now.
func NewEvent(eventType, subject string) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
	}
}

// WithClient records where the request came from.
func (e *Event) WithClient(ip, userAgent string) *Event {
	e.ClientIP = ip
	e.UserAgent = userAgent

	return e
}

// With sets one attribute.
func (e *Event) With(key, value string) *Event {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}

	e.Attributes[key] = value

	return e
}
