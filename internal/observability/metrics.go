package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "scenario"

// Metrics holds the Prometheus counters and histograms for the scenario service.
type Metrics struct {
	// Weather gateway metrics.
	WeatherRequests    *prometheus.CounterVec   // labels: outcome={success,error}
	WeatherCache       *prometheus.CounterVec   // labels: result={hit,miss}
	WeatherAPIDuration *prometheus.HistogramVec // labels: call={current,geocode}
	GeocodeRequests    *prometheus.CounterVec   // labels: provider={openweather,mapbox}, outcome={success,error,empty}

	// Inference metrics.
	InferenceRequests *prometheus.CounterVec   // labels: contract={simple,full}, result={model,fallback}
	InferenceDuration *prometheus.HistogramVec // labels: contract={simple,full}

	// Orchestration metrics.
	ScenarioOperations *prometheus.CounterVec // labels: op={create,simulate,delete,run}, outcome={success,rejected,error}
	EventsPublished    *prometheus.CounterVec // labels: type, outcome={success,error}
	ChatTurns          *prometheus.CounterVec // labels: tool_used={true,false}

	RateLimited prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.WeatherRequests,
		m.WeatherCache,
		m.WeatherAPIDuration,
		m.GeocodeRequests,
		m.InferenceRequests,
		m.InferenceDuration,
		m.ScenarioOperations,
		m.EventsPublished,
		m.ChatTurns,
		m.RateLimited,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_requests_total",
			Help:      "Weather resolutions by outcome.",
		}, []string{"outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
		WeatherAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "Weather provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"call"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Forward geocoding requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		InferenceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_requests_total",
			Help:      "Risk inferences by contract and whether the model or the fallback produced them.",
		}, []string{"contract", "result"}),
		InferenceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Model call duration in seconds, including validation.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"contract"}),
		ScenarioOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Scenario operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Scenario lifecycle events by type and outcome.",
		}, []string{"type", "outcome"}),
		ChatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Chat turns by whether the weather tool was used.",
		}, []string{"tool_used"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the inbound rate limiter.",
		}),
	}
}
