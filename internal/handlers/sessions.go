package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/Ducksans/gg-real-sub001/internal/audit"
	"github.com/Ducksans/gg-real-sub001/internal/session"
	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
)

// SessionStore is the part of session.Store used by the HTTP layer.
type SessionStore interface {
	SetWithTTL(ctx context.Context, id string, value session.StoredSession, ttl time.Duration) error
	Get(ctx context.Context, id string) (*session.StoredSession, error)
	Clear(ctx context.Context, id string) error
	DefaultTTL() time.Duration
}

// SessionHandler handles session operations.
type SessionHandler struct {
	store   SessionStore
	newID   session.IDGenerator
	emitter *audit.Emitter
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(
	store SessionStore,
	newID session.IDGenerator,
	emitter *audit.Emitter,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		store:   store,
		newID:   newID,
		emitter: emitter,
		logger:  logger,
		now:     time.Now,
	}
}

func (h *SessionHandler) CreateSession(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error) {
	id := h.newID()

	stored, err := h.write(ctx, id, req.Body)
	if err != nil {
		return nil, err
	}

	h.emitter.Emit(ctx, sessionEvent(ctx, audit.TopicSessionCreated, stored))

	resp := &CreateSessionResponse{}
	resp.Headers.Location = "/sessions/" + id
	resp.Body = view(stored)
	resp.Body.ID = id

	return resp, nil
}

func (h *SessionHandler) PutSession(ctx context.Context, req *PutSessionRequest) (*SessionResponse, error) {
	stored, err := h.write(ctx, req.ID, req.Body)
	if err != nil {
		return nil, err
	}

	return &SessionResponse{Body: view(stored)}, nil
}

func (h *SessionHandler) GetSession(ctx context.Context, req *SessionIDRequest) (*SessionResponse, error) {
	stored, err := h.store.Get(ctx, req.ID)
	if err != nil {
		return nil, statusError(h.logger, "get session", err)
	}

	return &SessionResponse{Body: view(*stored)}, nil
}

// DeleteSession clears a session. Clearing an absent session succeeds.
func (h *SessionHandler) DeleteSession(ctx context.Context, req *SessionIDRequest) (*struct{}, error) {
	// Only read to name the owner in the audit trail.
	existing, err := h.store.Get(ctx, req.ID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		h.logger.Debug("session lookup before clear failed, no audit event",
			zap.String("op", "clear session"), zap.Error(err))
	}

	if err := h.store.Clear(ctx, req.ID); err != nil {
		return nil, statusError(h.logger, "clear session", err)
	}

	if existing != nil {
		h.emitter.Emit(ctx, sessionEvent(ctx, audit.TopicSessionCleared, *existing))
	}

	return nil, nil
}

// Me returns the session that authenticated the request.
func (h *SessionHandler) Me(ctx context.Context, _ *struct{}) (*SessionResponse, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("no session")
	}

	return &SessionResponse{Body: view(*p.Session)}, nil
}

func (h *SessionHandler) write(ctx context.Context, id string, body SessionBody) (session.StoredSession, error) {
	ttl := time.Duration(body.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = h.store.DefaultTTL()
	}

	value := session.StoredSession{
		UserID:   body.UserID,
		Email:    body.Email,
		Role:     body.Role,
		Expires:  h.now().Add(ttl).UnixMilli(),
		Metadata: body.Metadata,
	}

	if err := h.store.SetWithTTL(ctx, id, value, ttl); err != nil {
		return session.StoredSession{}, statusError(h.logger, "set session", err)
	}

	return value, nil
}

func view(s session.StoredSession) SessionView {
	return SessionView{
		UserID:   s.UserID,
		Email:    s.Email,
		Role:     s.Role,
		Expires:  s.Expires,
		Metadata: s.Metadata,
	}
}

func sessionEvent(ctx context.Context, topic string, s session.StoredSession) *audit.Event {
	meta := RequestMetaFromContext(ctx)

	return audit.NewEvent(topic, s.UserID).
		WithClient(meta.ClientIP, meta.UserAgent).
		With("role", string(s.Role))
}
