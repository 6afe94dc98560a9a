package audit

import (
	"context"

	"github.com/Ducksans/gg-real-sub001/internal/messaging"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Emitter publishes audit events to the topic matching their type.
// Failures are logged and never reach the caller: auditing must not fail the
// request that triggered it. A nil Emitter drops everything.
type Emitter struct {
	publish map[string]messaging.Publish[Event]
	logger  *zap.Logger
}

// NewEmitter creates an emitter publishing through publisher.
func NewEmitter(publisher message.Publisher, logger *zap.Logger) *Emitter {
	publish := make(map[string]messaging.Publish[Event], len(Topics()))
	for _, topic := range Topics() {
		publish[topic] = messaging.NewPublishFunc[Event](publisher, topic)
	}

	return &Emitter{publish: publish, logger: logger}
}

// Emit publishes event.
func (e *Emitter) Emit(ctx context.Context, event *Event) {
	if e == nil || event == nil {
		return
	}

	publish, ok := e.publish[event.Type]
	if !ok {
		e.logger.Warn("unknown audit event type", zap.String("type", event.Type))

		return
	}

	if err := publish(ctx, event); err != nil {
		e.logger.Warn("failed to publish audit event",
			zap.String("type", event.Type),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}
}
