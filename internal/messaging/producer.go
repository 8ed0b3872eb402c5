package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"foodcourt-be/internal/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON-encoded events to a single topic. Messages are
// keyed so every event of one aggregate lands on the same partition.
type Producer struct {
	writer  MessageWriter
	timeout time.Duration
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
	return newProducer(w)
}

func newProducer(w MessageWriter) *Producer {
	return &Producer{writer: w, timeout: 5 * time.Second}
}

func (p *Producer) Publish(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}
	if t, ok := value.(interface{ EventType() string }); ok {
		msg.Headers = []kafka.Header{{Key: "event_type", Value: []byte(t.EventType())}}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.FromCtx(ctx).Warn("kafka write failed",
			zap.String("layer", "messaging"),
			zap.String("key", key),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

func (Noop) Close() error { return nil }
