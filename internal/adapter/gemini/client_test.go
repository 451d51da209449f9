package gemini

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), "test-key", "test-model", testLogger(), WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestNewClient_EmptyKey(t *testing.T) {
	_, err := NewClient(context.Background(), " ", "", testLogger())
	require.ErrorIs(t, err, domain.ErrMisconfigured)
}

func TestGenerate_ReturnsText(t *testing.T) {
	var gotPath, gotPrompt string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Contents) > 0 && len(body.Contents[0].Parts) > 0 {
			gotPrompt = body.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"riskLevel\":\"LOW\"}"}]}}]}`))
	})

	text, err := c.Generate(context.Background(), "assess Nha Trang")

	require.NoError(t, err)
	assert.JSONEq(t, `{"riskLevel":"LOW"}`, text)
	assert.True(t, strings.HasSuffix(gotPath, "models/test-model:generateContent"), gotPath)
	assert.Equal(t, "assess Nha Trang", gotPrompt)
	assert.Equal(t, "test-model", c.Model())
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerate_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := c.Generate(context.Background(), "prompt")
	require.Error(t, err)
}
