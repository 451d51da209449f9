package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
	"github.com/couchcryptid/disaster-scenario-service/internal/observability"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func serveFeatures(t *testing.T, features ...feature) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: features}))
	}))
}

func TestClient_Geocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "Da Nang")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{108.2022, 16.0544},
					PlaceName: "Da Nang, Vietnam",
					Text:      "Da Nang",
					Relevance: 0.95,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	place, found, err := testClient(srv.URL).Geocode(context.Background(), "Da Nang")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, 16.0544, place.Lat)
	assert.Equal(t, 108.2022, place.Lon)
	assert.Equal(t, "Da Nang, Vietnam", place.DisplayName)
}

func TestClient_Geocode_NoResults(t *testing.T) {
	srv := serveFeatures(t)
	defer srv.Close()

	_, found, err := testClient(srv.URL).Geocode(context.Background(), "NONEXISTENT")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_Geocode_LowRelevanceIsNotFound(t *testing.T) {
	srv := serveFeatures(t, feature{Center: []float64{1, 2}, PlaceName: "Somewhere", Relevance: 0.2})
	defer srv.Close()

	_, found, err := testClient(srv.URL).Geocode(context.Background(), "XYZNONEXISTENT99")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_Geocode_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).Geocode(context.Background(), "Hue")
	assert.ErrorIs(t, err, domain.ErrMisconfigured)
}

func TestClient_Geocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"Rate limit exceeded"}`))
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).Geocode(context.Background(), "Hue")
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_Geocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, _, err := c.Geocode(context.Background(), "Hue")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}
