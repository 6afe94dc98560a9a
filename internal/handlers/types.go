package handlers

import "github.com/Ducksans/gg-real-sub001/internal/session"

// SessionBody is the writable part of a session.
type SessionBody struct {
	UserID     string         `doc:"Owner of the session"                         example:"user-42"          json:"userId"               minLength:"1"`
	Email      string         `doc:"Email of the owner"                           example:"ada@example.com"  json:"email,omitempty"`
	Role       session.Role   `doc:"Access role"                                  enum:"viewer,editor,admin" json:"role"`
	Metadata   map[string]any `doc:"Free-form JSON metadata"                      json:"metadata,omitempty"`
	TTLSeconds int64          `doc:"Lifetime in seconds, server default when 0" json:"ttlSeconds,omitempty" maximum:"31536000" minimum:"0"`
}

// SessionView is a stored session as returned by the API.
type SessionView struct {
	ID       string         `doc:"Session id, only returned on creation" json:"id,omitempty"`
	UserID   string         `json:"userId"`
	Email    string         `json:"email,omitempty"`
	Role     session.Role   `json:"role"`
	Expires  int64          `doc:"Expiry as epoch milliseconds" json:"expires"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CreateSessionRequest is the request for creating a session.
type CreateSessionRequest struct {
	Body SessionBody
}

// CreateSessionResponse is the response for a created session.
type CreateSessionResponse struct {
	Headers struct {
		Location string `doc:"The session resource" header:"Location"`
	}
	Body SessionView
}

// PutSessionRequest overwrites the session stored under ID.
type PutSessionRequest struct {
	ID   string `doc:"Session id" path:"id"`
	Body SessionBody
}

// SessionIDRequest addresses one session.
type SessionIDRequest struct {
	ID string `doc:"Session id" path:"id"`
}

// SessionResponse wraps a single session.
type SessionResponse struct {
	Body SessionView
}

// ConsumeBody optionally overrides the configured limiter options.
type ConsumeBody struct {
	WindowSeconds int64  `doc:"Window length in seconds"   json:"windowSeconds,omitempty" maximum:"31536000" minimum:"0"`
	Limit         int64  `doc:"Requests allowed per window" json:"limit,omitempty"         minimum:"0"`
	Namespace     string `doc:"Counter namespace"          json:"namespace,omitempty"`
}

// ConsumeRequest consumes one unit from the counter named Key.
type ConsumeRequest struct {
	Key  string       `doc:"Caller-chosen limit key" example:"user:42" path:"key"`
	Body *ConsumeBody `required:"false"`
}

// RateLimitHeaders are reported with every rate limit decision.
type RateLimitHeaders struct {
	Limit      int64  `header:"X-RateLimit-Limit"`
	Remaining  int64  `header:"X-RateLimit-Remaining"`
	Reset      int64  `header:"X-RateLimit-Reset"`
	RetryAfter string `header:"Retry-After"`
}

// ConsumeResponse reports the limiter decision. Status is 429 when denied.
type ConsumeResponse struct {
	Status  int
	Headers RateLimitHeaders
	Body    struct {
		Success   bool  `json:"success"`
		Remaining int64 `json:"remaining"`
		Limit     int64 `json:"limit"`
		ResetIn   int64 `doc:"Seconds until the window resets" json:"resetIn"`
	}
}

// ResetRequest deletes the counter named Key.
type ResetRequest struct {
	Key       string `doc:"Caller-chosen limit key" path:"key"`
	Namespace string `doc:"Counter namespace"       query:"namespace"`
}
