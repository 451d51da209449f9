package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/disaster-scenario-service/internal/config"
	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
	"github.com/couchcryptid/disaster-scenario-service/internal/observability"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces scenario lifecycle events to a Kafka topic.
// It implements scenario.Publisher.
type Publisher struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a Kafka producer for the configured events topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEventsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Publisher{writer: w, logger: logger, metrics: metrics}
}

// Publish serializes and writes one event keyed by scenario id, so events
// for a scenario stay ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, ev domain.ScenarioEvent) error {
	msg, err := serializeToMessage(ev)
	if err != nil {
		p.metrics.EventsPublished.WithLabelValues(ev.Type, "error").Inc()
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.EventsPublished.WithLabelValues(ev.Type, "error").Inc()
		return fmt.Errorf("write scenario event: %w", err)
	}
	p.metrics.EventsPublished.WithLabelValues(ev.Type, "success").Inc()
	p.logger.Debug("scenario event published", "type", ev.Type, "scenario_id", ev.ScenarioID)
	return nil
}

// Close flushes pending writes and closes the producer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a ScenarioEvent into a Kafka message.
func serializeToMessage(ev domain.ScenarioEvent) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize scenario event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.ScenarioID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "occurred_at", Value: []byte(ev.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}
