package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher returns an async publisher. Publish only queues the
// message; delivery failures are reported through logger.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		Async:                  true,
		Completion:             completion(logger),
	}
	return &KafkaPublisher{writer: w}
}

func completion(logger *zap.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, m := range msgs {
			logger.Warn("event delivery failed", zap.ByteString("key", m.Key), zap.Error(err))
		}
	}
}

// Publish keys messages by image so a consumer sees one image's events in
// order.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := message(ev)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func message(ev Event) (kafka.Message, error) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event: %w", err)
	}
	key := ev.ImageUID
	if key == "" {
		key = ev.MediaID
	}
	return kafka.Message{Key: []byte(key), Value: value, Time: ev.OccurredAt}, nil
}

// Close flushes queued messages.
func (p *KafkaPublisher) Close() error { return p.writer.Close() }
