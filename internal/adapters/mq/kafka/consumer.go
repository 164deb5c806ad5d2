// Package kafka feeds technician status events from a Kafka topic into the
// same ingest path as the HTTP API, and publishes them for tooling.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/cityconnect/internal/adapters/mq/queue"
	"github.com/okian/cityconnect/internal/domain/model"
	"github.com/okian/cityconnect/pkg/logger"
	"github.com/okian/cityconnect/pkg/metrics"
)

const defaultBackoff = 200 * time.Millisecond

// Ingester accepts one status event. duplicate is true when the event id
// was already seen.
type Ingester interface {
	Ingest(ctx context.Context, e model.StatusEvent) (duplicate bool, err error)
}

type reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads a topic as part of a consumer group. Offsets are committed
// only after the event was accepted, dropped as a duplicate or rejected as
// undecodable; a full queue pauses consumption on the same message.
type Consumer struct {
	reader  reader
	sink    Ingester
	logger  logger.Logger
	backoff time.Duration
}

// NewConsumer creates a consumer group reader for topic.
func NewConsumer(brokers []string, topic, groupID string, sink Ingester, opts ...Option) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newConsumer(r, sink, opts...)
}

func newConsumer(r reader, sink Ingester, opts ...Option) *Consumer {
	c := &Consumer{reader: r, sink: sink, backoff: defaultBackoff}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("kafka")
	}
	return c
}

// Run consumes until ctx is cancelled or the ingest queue closes.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}

		if stop := c.handle(ctx, msg); stop {
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka commit offset %d: %w", msg.Offset, err)
		}
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// handle ingests msg, waiting out backpressure. It returns true when the
// consumer must stop without committing.
func (c *Consumer) handle(ctx context.Context, msg kafkago.Message) bool { //nolint:gocritic // hugeParam: kafka-go API passes messages by value
	ev, err := decode(msg)
	if err != nil {
		metrics.RecordKafkaMessage("invalid")
		c.logger.Warn(ctx, "dropping undecodable status message",
			logger.Int("partition", msg.Partition),
			logger.Any("offset", msg.Offset),
			logger.Error(err),
		)
		return false
	}

	for {
		duplicate, err := c.sink.Ingest(ctx, ev)
		switch {
		case err == nil && duplicate:
			metrics.RecordKafkaMessage("duplicate")
			return false
		case err == nil:
			metrics.RecordKafkaMessage("accepted")
			return false
		case errors.Is(err, queue.ErrFull):
			select {
			case <-ctx.Done():
				return true
			case <-time.After(c.backoff):
			}
		case errors.Is(err, queue.ErrClosed):
			return true
		default:
			metrics.RecordKafkaMessage("error")
			c.logger.Warn(ctx, "status message rejected",
				logger.String("event_id", ev.EventID),
				logger.Error(err),
			)
			return false
		}
	}
}

// decode parses a JSON status event. A message without event_id gets a
// stable id from its topic, partition and offset, so redeliveries dedupe.
func decode(msg kafkago.Message) (model.StatusEvent, error) { //nolint:gocritic
	var ev model.StatusEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return model.StatusEvent{}, fmt.Errorf("decode status event: %w", err)
	}
	if ev.EventID == "" {
		ev.EventID = fmt.Sprintf("%s-%d-%d", msg.Topic, msg.Partition, msg.Offset)
	}
	if ev.TS.IsZero() {
		ev.TS = msg.Time
	}
	if err := ev.Validate(); err != nil {
		return model.StatusEvent{}, err
	}
	return ev, nil
}
