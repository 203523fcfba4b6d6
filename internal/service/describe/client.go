package describe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	applog "github.com/janisto/lostcat/internal/platform/logging"
)

const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 30 * time.Second
)

var errEmptyResponse = errors.New("provider returned no text")

// Client implements Generator using the Gemini API.
type Client struct {
	genai       *genai.Client
	model       string
	timeout     time.Duration
	strictEmpty bool
	httpClient  *http.Client
	baseURL     string
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the Gemini model name.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithStrictEmpty treats an empty provider answer as a failure instead of
// returning FallbackDescription.
func WithStrictEmpty(strict bool) Option {
	return func(c *Client) {
		c.strictEmpty = strict
	}
}

// WithHTTPClient sets the transport used for provider calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL points the client at a different endpoint (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// NewClient creates a Gemini-backed generator. An empty apiKey yields a client
// whose Generate always fails with ErrMissingCredential.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		model:   DefaultModel,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if strings.TrimSpace(apiKey) == "" {
		return c, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	c.genai = gc
	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Generate drafts a description. No network call is made when the credential
// is missing or the request is incomplete.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.genai == nil {
		return "", ErrMissingCredential
	}
	if !req.Complete() {
		return "", ErrIncompleteRequest
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(BuildPrompt(req)), nil)
	if err != nil {
		applog.LogWarn(ctx, "gemini generate content failed",
			zap.String("model", c.model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return "", &GenerationError{Model: c.model, cause: err}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		if c.strictEmpty {
			return "", &GenerationError{Model: c.model, cause: errEmptyResponse}
		}
		applog.LogInfo(ctx, "gemini returned empty text, using fallback description",
			zap.String("model", c.model))
		return FallbackDescription, nil
	}

	applog.LogInfo(ctx, "description generated",
		zap.String("model", c.model),
		zap.Int("chars", len(text)),
		zap.Duration("duration", time.Since(start)),
	)
	return text, nil
}

// Compile-time interface check
var _ Generator = (*Client)(nil)
