package events

import (
	"context"
	"log"

	"github.com/slotwise/booking-backend/internal/pkg/mq"
)

// Publisher emits integration events after a use case commits. Delivery is
// at-least-once; consumers must be idempotent. A publish failure never rolls
// back the already-committed transaction.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any)
}

// AMQPPublisher publishes to a topic exchange.
type AMQPPublisher struct {
	pub *mq.Publisher
}

func NewAMQPPublisher(pub *mq.Publisher) *AMQPPublisher {
	return &AMQPPublisher{pub: pub}
}

func (p *AMQPPublisher) Publish(ctx context.Context, key string, payload any) {
	if err := p.pub.PublishJSON(ctx, key, payload); err != nil {
		// Logged and dropped: the transaction has already committed.
		log.Printf("failed to publish %s event: %v", key, err)
	}
}

// NopPublisher discards events. Used when no broker is configured and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, key string, payload any) {}
