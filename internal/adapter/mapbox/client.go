package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
	"github.com/couchcryptid/disaster-scenario-service/internal/observability"
)

// minRelevance drops fuzzy matches Mapbox returns for nonsense queries.
const minRelevance = 0.5

// Client implements weather.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		logger:  logger,
		metrics: metrics,
	}
}

// Geocode converts a free-text place name to the top-ranked coordinate.
func (c *Client) Geocode(ctx context.Context, text string) (domain.Place, bool, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(text))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality,district,region"},
	}

	place, found, err := c.doRequest(ctx, u+"?"+params.Encode())
	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("mapbox", "error").Inc()
	case !found:
		c.metrics.GeocodeRequests.WithLabelValues("mapbox", "empty").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues("mapbox", "success").Inc()
	}
	return place, found, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Place, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Place{}, false, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.WeatherAPIDuration.WithLabelValues("geocode").Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.Place{}, false, fmt.Errorf("%w: mapbox geocode request: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return domain.Place{}, false, fmt.Errorf("%w: mapbox rejected token", domain.ErrMisconfigured)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("mapbox API error", "status", resp.StatusCode)
		return domain.Place{}, false, fmt.Errorf("%w: mapbox API error: status %d: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.Place{}, false, fmt.Errorf("%w: decode response: %w", domain.ErrUpstreamUnavailable, err)
	}

	if len(mapboxResp.Features) == 0 {
		return domain.Place{}, false, nil
	}

	f := mapboxResp.Features[0]
	if len(f.Center) != 2 || f.Relevance < minRelevance {
		return domain.Place{}, false, nil
	}
	return domain.Place{
		Coordinates: domain.Coordinates{Lat: f.Center[1], Lon: f.Center[0]},
		DisplayName: f.PlaceName,
	}, true, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
