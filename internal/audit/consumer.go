package audit

import (
	"github.com/Ducksans/gg-real-sub001/internal/messaging"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// NewConsumers creates one consumer per audit topic, each saving what it
// receives to store.
func NewConsumers(subscriber message.Subscriber, store Store, logger *zap.Logger) []messaging.Runnable {
	topics := Topics()
	consumers := make([]messaging.Runnable, 0, len(topics))

	for _, topic := range topics {
		consumers = append(consumers, messaging.NewConsumer[Event](subscriber, topic, store.Save, logger))
	}

	return consumers
}
