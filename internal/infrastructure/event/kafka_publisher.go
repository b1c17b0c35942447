package event

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Kafka message header keys
const (
	HeaderEventID       = "event_id"
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
)

// messageWriter is the part of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes domain events to one Kafka topic.
// Messages are keyed by aggregate id so every event of an order lands on the same partition.
type KafkaPublisher struct {
	writer     messageWriter
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to topic on brokers
func NewKafkaPublisher(brokers []string, topic string, serializer *EventSerializer, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher needs at least one broker")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("kafka publisher needs a topic")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
		WriteTimeout:           10 * time.Second,
	}
	return newKafkaPublisher(w, serializer, logger), nil
}

func newKafkaPublisher(w messageWriter, serializer *EventSerializer, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:     w,
		serializer: serializer,
		logger:     logger,
	}
}

// Publish writes the events synchronously and returns once all of them are acknowledged
func (p *KafkaPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := p.serializer.Serialize(ev)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", ev.EventType(), err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.AggregateID().String()),
			Value: value,
			Time:  ev.OccurredAt().UTC(),
			Headers: []kafka.Header{
				{Key: HeaderEventID, Value: []byte(ev.EventID().String())},
				{Key: HeaderEventType, Value: []byte(ev.EventType())},
				{Key: HeaderAggregateType, Value: []byte(ev.AggregateType())},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	p.logger.Debug("events written to kafka", zap.Int("count", len(msgs)))
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher stands in for Kafka when no brokers are configured.
// Every event is written to the log and counted as delivered.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a new LogPublisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the events
func (p *LogPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	for _, ev := range events {
		p.logger.Info("domain event",
			zap.String("event_id", ev.EventID().String()),
			zap.String("event_type", ev.EventType()),
			zap.String("aggregate_type", ev.AggregateType()),
			zap.String("aggregate_id", ev.AggregateID().String()),
		)
	}
	return nil
}

var (
	_ shared.EventPublisher = (*KafkaPublisher)(nil)
	_ shared.EventPublisher = (*LogPublisher)(nil)
)
