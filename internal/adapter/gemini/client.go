// Package gemini adapts the Google Gen AI SDK to the inference Model and
// chat Completer interfaces.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash-lite"

// ErrEmptyResponse is returned when the model produces no text.
var ErrEmptyResponse = errors.New("empty model response")

// Client issues single-turn text completions.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*genai.ClientConfig)

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = url
	}
}

// NewClient creates a Gemini API client. An empty apiKey is a
// configuration error.
func NewClient(ctx context.Context, apiKey, model string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", domain.ErrMisconfigured)
	}
	if model == "" {
		model = DefaultModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{client: client, model: model, temperature: 0.2, logger: logger}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Generate sends prompt as a single user turn and returns the response text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	c.logger.Debug("model response", "model", c.model, "chars", len(text))
	return text, nil
}
