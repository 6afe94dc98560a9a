package store

import (
	"context"

	"github.com/Ducksans/gg-real-sub001/internal/audit"
	"go.uber.org/zap"
)

// Noop is an audit.Store that only logs events. It is used when no database
// is configured.
type Noop struct {
	logger *zap.Logger
}

var _ audit.Store = (*Noop)(nil)

// NewNoop creates a new logging audit store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) Save(_ context.Context, event *audit.Event) error {
	fields := []zap.Field{
		zap.String("id", event.ID),
		zap.String("type", event.Type),
		zap.String("subject", event.Subject),
		zap.String("clientIp", event.ClientIP),
		zap.Time("occurredAt", event.OccurredAt),
	}
	if len(event.Attributes) > 0 {
		fields = append(fields, zap.Any("attributes", event.Attributes))
	}

	n.logger.Info("audit event received", fields...)

	return nil
}
