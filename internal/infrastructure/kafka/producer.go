package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/xmtea/whatsapp-bot/internal/logging"
)

// Producer writes order events to a topic. It satisfies store.Publisher so
// the event store can fan appended events out to Kafka.
type Producer struct {
	writer *kafka.Writer
	log    *slog.Logger
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // same key, same partition: one order's events stay ordered
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer, log: logging.New("kafka_producer")}
}

// Publish encodes event as JSON and writes it keyed by key
func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}); err != nil {
		p.log.Error("failed to publish event", "key", key, "topic", p.writer.Topic, "error", err)
		return fmt.Errorf("publish to %s: %w", p.writer.Topic, err)
	}
	p.log.Debug("event published", "key", key, "topic", p.writer.Topic, "bytes", len(data))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
