package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/cityconnect/internal/domain/model"
)

// Publisher writes status events to a topic, keyed by technician id so each
// technician's events stay ordered within a partition.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a producer for topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}}
}

// Publish writes events in one batch.
func (p *Publisher) Publish(ctx context.Context, events ...model.StatusEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func serializeToMessage(ev model.StatusEvent) (kafkago.Message, error) { //nolint:gocritic
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize status event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.TechnicianID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
		},
	}, nil
}
