package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
	"github.com/couchcryptid/disaster-scenario-service/internal/observability"
)

// Client implements weather.Provider and weather.Geocoder using the
// OpenWeather current-weather and direct-geocoding APIs.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an OpenWeather client. Every request is bounded by timeout.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
		metrics:    metrics,
	}
}

// Current fetches current conditions for a coordinate.
func (c *Client) Current(ctx context.Context, coords domain.Coordinates, lang, units string) (domain.WeatherSnapshot, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(coords.Lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(coords.Lon, 'f', -1, 64)},
		"units": {units},
		"lang":  {lang},
	}
	body, err := c.get(ctx, "/data/2.5/weather", params, "current")
	if err != nil {
		return domain.WeatherSnapshot{}, err
	}

	var resp currentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("%w: decode weather response: %w", domain.ErrUpstreamUnavailable, err)
	}
	return resp.snapshot(coords, lang, units, body), nil
}

// Geocode resolves free text to the first direct-geocoding candidate.
func (c *Client) Geocode(ctx context.Context, text string) (domain.Place, bool, error) {
	body, err := c.get(ctx, "/geo/1.0/direct", url.Values{"q": {text}, "limit": {"1"}}, "geocode")
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("openweather", "error").Inc()
		return domain.Place{}, false, err
	}

	var candidates []geoCandidate
	if err := json.Unmarshal(body, &candidates); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("openweather", "error").Inc()
		return domain.Place{}, false, fmt.Errorf("%w: decode geocoding response: %w", domain.ErrUpstreamUnavailable, err)
	}
	if len(candidates) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("openweather", "empty").Inc()
		return domain.Place{}, false, nil
	}

	c.metrics.GeocodeRequests.WithLabelValues("openweather", "success").Inc()
	first := candidates[0]
	return domain.Place{
		Coordinates: domain.Coordinates{Lat: first.Lat, Lon: first.Lon},
		DisplayName: domain.ComposeDisplayName(first.Name, first.State, first.Country),
	}, true, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, call string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: missing WEATHER_API_KEY", domain.ErrMisconfigured)
	}
	params.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.WeatherAPIDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %s request: %w", domain.ErrUpstreamUnavailable, call, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %w", domain.ErrUpstreamUnavailable, call, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: openweather rejected credential: status %d", domain.ErrMisconfigured, resp.StatusCode)
	default:
		c.logger.Warn("openweather API error", "call", call, "status", resp.StatusCode, "message", errorMessage(body))
		return nil, fmt.Errorf("%w: openweather status %d: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, errorMessage(body))
	}
}

func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return string(body)
}
