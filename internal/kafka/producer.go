// Package kafka publishes audit entries to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Lllllllleong/documentrouter/internal/logger"
	"github.com/Lllllllleong/documentrouter/internal/models"
)

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes every audit entry keyed by thread id, so the entries of
// one thread land on one partition in append order. It implements audit.Sink.
type Producer struct {
	writer MessageWriter
	logger *slog.Logger
}

// NewProducer creates a Producer for topic on brokers.
func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	return NewProducerWithWriter(w, topic)
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(w MessageWriter, topic string) *Producer {
	return &Producer{
		writer: w,
		logger: logger.WithComponent("kafka-producer").With("topic", topic),
	}
}

// Publish writes entry synchronously.
func (p *Producer) Publish(ctx context.Context, entry models.AuditEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(entry.ThreadID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "agent", Value: []byte(entry.AgentProcessed)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish audit entry", "threadId", entry.ThreadID, "logId", entry.LogID, "error", err)
		return fmt.Errorf("failed to publish to kafka: %w", err)
	}
	p.logger.Debug("Audit entry published", "threadId", entry.ThreadID, "logId", entry.LogID, "size", len(value))
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
