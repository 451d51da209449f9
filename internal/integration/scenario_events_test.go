//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/disaster-scenario-service/internal/adapter/kafka"
	"github.com/couchcryptid/disaster-scenario-service/internal/adapter/memory"
	"github.com/couchcryptid/disaster-scenario-service/internal/config"
	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
	"github.com/couchcryptid/disaster-scenario-service/internal/inference"
	"github.com/couchcryptid/disaster-scenario-service/internal/observability"
	"github.com/couchcryptid/disaster-scenario-service/internal/scenario"
)

const testEventsTopic = "test-scenario-events"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("scenario-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type fixedWeather struct{}

func (fixedWeather) Resolve(_ context.Context, q domain.LocationQuery, lang, units string) (domain.WeatherSnapshot, error) {
	rain := 12.0
	snap := domain.WeatherSnapshot{DisplayName: q.Text, Lang: lang, Units: units, RainOneHour: &rain}
	if q.Coordinates != nil {
		snap.Coordinates = *q.Coordinates
	}
	return snap, nil
}

type receivedEvent struct {
	Event   domain.ScenarioEvent
	Key     string
	Headers map[string]string
}

func readEvent(ctx context.Context, t *testing.T, consumer *kafkago.Reader) receivedEvent {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from events topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var ev domain.ScenarioEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	return receivedEvent{Event: ev, Key: string(msg.Key), Headers: headers}
}

// TestScenarioLifecycleEvents drives create, simulate and delete through the
// orchestrator and reads the resulting events back from Kafka.
func TestScenarioLifecycleEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testEventsTopic)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaEventsTopic: testEventsTopic,
	}
	metrics := observability.NewMetricsForTesting()

	publisher := kafka.NewPublisher(cfg, discardLogger(), metrics)
	t.Cleanup(func() { _ = publisher.Close() })

	engine := inference.NewEngine(nil, time.Second, discardLogger(), metrics)
	svc := scenario.NewService(memory.NewStore(), fixedWeather{}, engine, publisher, discardLogger(), metrics)

	owner := "user-1"
	sc, err := svc.Create(ctx, scenario.CreateRequest{Location: domain.LocationQuery{Text: "Hue"}, Lang: "en", Owner: &owner})
	require.NoError(t, err)

	mult := 2.0
	_, err = svc.Simulate(ctx, sc.ID, owner, domain.Knobs{RainMultiplier: &mult})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, sc.ID, owner))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testEventsTopic,
		GroupID:     fmt.Sprintf("test-events-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	want := []string{domain.EventScenarioCreated, domain.EventScenarioSimulated, domain.EventScenarioDeleted}
	for _, eventType := range want {
		got := readEvent(ctx, t, consumer)
		assert.Equal(t, eventType, got.Event.Type)
		assert.Equal(t, sc.ID, got.Event.ScenarioID)
		assert.Equal(t, sc.ID, got.Key)
		assert.Equal(t, eventType, got.Headers["event_type"])
		assert.NotEmpty(t, got.Headers["occurred_at"])
		require.NotNil(t, got.Event.OwnerID)
		assert.Equal(t, owner, *got.Event.OwnerID)
	}
}

// TestRunSimulationEvent checks that an ad-hoc simulation run is announced
// without an owner.
func TestRunSimulationEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testEventsTopic)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaEventsTopic: testEventsTopic,
	}
	metrics := observability.NewMetricsForTesting()

	publisher := kafka.NewPublisher(cfg, discardLogger(), metrics)
	t.Cleanup(func() { _ = publisher.Close() })

	engine := inference.NewEngine(nil, time.Second, discardLogger(), metrics)
	svc := scenario.NewService(memory.NewStore(), fixedWeather{}, engine, publisher, discardLogger(), metrics)

	rain := 35.0
	res, err := svc.RunSimulation(ctx, domain.SimulationInput{
		DisasterType:      "flood",
		Location:          domain.Coordinates{Lat: 12.2388, Lon: 109.1967},
		Duration:          12,
		RainfallIntensity: &rain,
	})
	require.NoError(t, err)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testEventsTopic,
		GroupID:     fmt.Sprintf("test-run-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := readEvent(ctx, t, consumer)
	assert.Equal(t, domain.EventScenarioCreated, got.Event.Type)
	assert.Equal(t, res.SimulationID, got.Event.ScenarioID)
	assert.Equal(t, res.RiskLevel, got.Event.RiskLevel)
	assert.Nil(t, got.Event.OwnerID)
}
