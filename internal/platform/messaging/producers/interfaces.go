package producers

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

// MessagePublisher handles publishing messages to a primary topic
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// TriggerEventPublisher delivers import trigger events with backoff retries
type TriggerEventPublisher interface {
	PublishTrigger(ctx context.Context, event *shared.TriggerEvent) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
