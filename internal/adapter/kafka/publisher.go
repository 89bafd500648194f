package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/user/applicant-harvester/internal/entity"
)

//go:generate mockgen -source=publisher.go -destination=../../../mocks/mock_message_writer.go -package=mocks

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes run events to a Kafka topic, keyed by run ID so a run's
// events stay ordered within one partition.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
	}
}

// NewPublisherWithWriter builds a publisher using a custom writer (tests).
func NewPublisherWithWriter(writer messageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// Publish sends one event.
func (p *Publisher) Publish(ctx context.Context, event entity.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := kafka.Message{
		Key:   []byte(event.RunID),
		Value: payload,
		Time:  ts.UTC(),
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Close shuts down the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
