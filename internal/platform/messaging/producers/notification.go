package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/retail-banking-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// NotificationProducer writes user confirmations to the notification topic.
// Writes are synchronous: the outbox relay marks a row processed only after
// the broker acknowledged it.
type NotificationProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

func NewNotificationProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*NotificationProducer, error) {
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("kafka notification topic is not configured")
	}

	if err := ensureTopic(logger, cfg, cfg.NotificationTopic); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.NotificationTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return newNotificationProducer(logger, writer, cfg.NotificationTopic), nil
}

func newNotificationProducer(logger *slog.Logger, writer KafkaWriter, topic string) *NotificationProducer {
	return &NotificationProducer{
		logger: logger.With("component", "notification_producer", "topic", topic),
		writer: writer,
		topic:  topic,
	}
}

// Publish writes value under key. Messages for one user share a partition, so
// a user sees their confirmations in order.
func (p *NotificationProducer) Publish(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("notification payload for key %s is not valid JSON", key)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish notification", "key", key, "error", err)
		return fmt.Errorf("failed to publish notification to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published notification", "key", key)
	return nil
}

func (p *NotificationProducer) Close() error {
	p.logger.Info("Closing notification producer")
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
