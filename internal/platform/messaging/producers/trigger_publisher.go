package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fleet-diesel-ledger/internal/config"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

// TriggerPublisher delivers import trigger events to the external trigger
// topic. Delivery retries with exponential backoff: the initial delay doubles
// after each failed attempt, and once the attempt budget is exhausted the
// failure is surfaced to the caller as shared.ErrTriggerFailed.
type TriggerPublisher struct {
	logger       *slog.Logger
	writer       KafkaWriter
	topic        string
	initialDelay time.Duration
	maxAttempts  int
}

// NewTriggerPublisher creates a trigger publisher and ensures the topic exists.
// Writes are synchronous; the backoff loop needs real per-attempt failures.
func NewTriggerPublisher(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig, triggerCfg *config.TriggerConfig) (*TriggerPublisher, error) {
	if cfg.TriggerTopic == "" {
		return nil, fmt.Errorf("kafka trigger topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for trigger publisher: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.TriggerTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure trigger topic %s exists for trigger publisher: %w", cfg.TriggerTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.TriggerTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &TriggerPublisher{
		logger:       logger,
		writer:       writer,
		topic:        cfg.TriggerTopic,
		initialDelay: triggerCfg.InitialDelay,
		maxAttempts:  triggerCfg.MaxAttempts,
	}, nil
}

// PublishTrigger sends one trigger event, retrying with exponential backoff.
// A context cancellation aborts the wait between attempts.
func (p *TriggerPublisher) PublishTrigger(ctx context.Context, event *shared.TriggerEvent) error {
	jsonValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Data.Source),
		Value: jsonValue,
	}

	var lastErr error
	delay := p.initialDelay
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		lastErr = p.writer.WriteMessages(ctx, msg)
		if lastErr == nil {
			p.logger.Info("Published import trigger",
				"topic", p.topic,
				"source", event.Data.Source,
				"attempt", attempt,
			)
			return nil
		}

		p.logger.Warn("Failed to publish import trigger, backing off",
			"topic", p.topic,
			"source", event.Data.Source,
			"attempt", attempt,
			"delay", delay,
			"error", lastErr,
		)

		if attempt == p.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return shared.ErrTriggerFailed{Attempts: attempt, Last: ctx.Err()}
		case <-time.After(delay):
		}
		delay *= 2
	}

	p.logger.Error("Import trigger delivery exhausted all attempts",
		"topic", p.topic,
		"source", event.Data.Source,
		"attempts", p.maxAttempts,
		"error", lastErr,
	)
	return shared.ErrTriggerFailed{Attempts: p.maxAttempts, Last: lastErr}
}

func (p *TriggerPublisher) Close() error {
	p.logger.Info("Closing trigger Kafka publisher", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close trigger kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
