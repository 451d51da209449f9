package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-scenario-service/internal/config"
	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
	"github.com/couchcryptid/disaster-scenario-service/internal/observability"
)

type mockWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func newTestPublisher(w messageWriter) (*Publisher, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return &Publisher{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil)), metrics: metrics}, metrics
}

func testEvent() domain.ScenarioEvent {
	owner := "alice"
	return domain.ScenarioEvent{
		Type:       domain.EventScenarioSimulated,
		ScenarioID: "sc-1",
		OwnerID:    &owner,
		RiskLevel:  domain.RiskHigh,
		OccurredAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	ev := testEvent()

	msg, err := serializeToMessage(ev)
	require.NoError(t, err)

	assert.Equal(t, []byte("sc-1"), msg.Key)
	assert.JSONEq(t, `{
		"type": "scenario.simulated",
		"scenario_id": "sc-1",
		"owner_id": "alice",
		"risk_level": "HIGH",
		"occurred_at": "2026-03-01T08:00:00Z"
	}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("scenario.simulated"), msg.Headers[0].Value)
	assert.Equal(t, "occurred_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-03-01T08:00:00Z"), msg.Headers[1].Value)
}

func TestPublish_WritesOneMessage(t *testing.T) {
	w := &mockWriter{}
	p, metrics := newTestPublisher(w)

	require.NoError(t, p.Publish(context.Background(), testEvent()))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("sc-1"), w.msgs[0].Key)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(domain.EventScenarioSimulated, "success")), 0)
}

func TestPublish_WriteError(t *testing.T) {
	w := &mockWriter{err: errors.New("leader not available")}
	p, metrics := newTestPublisher(w)

	err := p.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(domain.EventScenarioSimulated, "error")), 0)
}

func TestPublisher_Close(t *testing.T) {
	w := &mockWriter{}
	p, _ := newTestPublisher(w)
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewPublisher_UsesConfig(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"broker-1:9092"}, KafkaEventsTopic: "scenario-events"}
	p := NewPublisher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	w, ok := p.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "scenario-events", w.Topic)
	assert.Equal(t, "broker-1:9092", w.Addr.String())
}
