package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tenxcards/cards-api/internal/ratelimit"
)

// Defaults for the retry policy and the local admission guard.
const (
	defaultMaxRetries     = 3
	defaultBaseRetryDelay = time.Second
	defaultRequestTimeout = 60 * time.Second

	defaultLimiterMaxRequests = 50
	defaultLimiterWindow      = time.Minute
)

// Message is a single {role, content} entry in the chat payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the normalized answer payload. Answer is either a JSON-encoded
// flashcards object or the raw message content; Note annotates how the
// content was classified and is diagnostic only, never shown to end users.
type Response struct {
	Answer string
	Note   string
}

// completionResponse mirrors the upstream chat-completions response shape.
type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client sends chat-completion requests to a single configured upstream
// endpoint. It guards the upstream with a process-local sliding-window
// limiter and retries transport failures with exponential backoff. Retry
// state is local to each Send call, so concurrent sends never interfere.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	config     atomic.Pointer[Config]
	maxRetries int
	baseDelay  time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter replaces the local admission guard.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetryPolicy overrides the retry count and base backoff delay.
// Retries apply only to transport-level failures.
func WithRetryPolicy(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

// New creates a Client with the given configuration.
// Returns a configuration error if the config is invalid.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		logger:     logger.With("component", "chat_client"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		limiter:    ratelimit.New(defaultLimiterMaxRequests, defaultLimiterWindow),
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseRetryDelay,
	}
	c.config.Store(&cfg)

	for _, opt := range opts {
		opt(c)
	}

	c.logger.Info("chat client initialized",
		"endpoint", cfg.Endpoint,
		"model", cfg.Model)

	return c, nil
}

// Model returns the currently configured model identifier.
func (c *Client) Model() string {
	return c.config.Load().Model
}

// UpdateConfig applies a partial configuration update. The merged
// configuration is validated before being swapped in; on validation failure
// the current configuration is left untouched.
func (c *Client) UpdateConfig(update ConfigUpdate) error {
	next := update.apply(*c.config.Load())
	if err := next.Validate(); err != nil {
		return err
	}

	c.config.Store(&next)
	c.logger.Info("chat client configuration updated",
		"endpoint", next.Endpoint,
		"model", next.Model)
	return nil
}

// Send posts the user message to the upstream chat endpoint and returns the
// normalized response.
//
// Error contract: ErrEmptyMessage for blank input and RateLimitError when the
// local guard denies admission (no network call in either case); ErrNetwork
// after retries are exhausted; UpstreamError for non-2xx statuses;
// ErrInvalidResponse for malformed bodies. Only transport failures are
// retried, with delays of baseDelay, 2*baseDelay, 4*baseDelay. Context
// cancellation aborts the in-flight call and skips remaining retries.
func (c *Client) Send(ctx context.Context, userMessage string) (*Response, error) {
	if strings.TrimSpace(userMessage) == "" {
		c.logger.Warn("empty user message received")
		return nil, ErrEmptyMessage
	}

	if !c.limiter.CheckLimit() {
		retryAfter := c.limiter.TimeUntilReset()
		c.logger.Warn("local rate limit reached",
			"retry_after", retryAfter,
			"remaining_requests", c.limiter.RemainingRequests())
		return nil, &RateLimitError{RetryAfter: retryAfter}
	}

	cfg := c.config.Load()

	body, err := json.Marshal(buildPayload(cfg, userMessage))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request payload: %w", err)
	}

	// The attempt counter lives on this call's stack: concurrent sends each
	// run their own retry budget.
	for attempt := 0; ; attempt++ {
		resp, err := c.attempt(ctx, cfg, body)
		if err == nil {
			c.logger.Debug("chat message sent successfully",
				"model", cfg.Model,
				"attempt", attempt+1)
			return resp, nil
		}

		if !errors.Is(err, ErrNetwork) || attempt >= c.maxRetries {
			return nil, err
		}

		delay := c.baseDelay << attempt
		c.logger.Warn("retrying chat request after transport failure",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("chat request aborted during retry delay: %w", ctx.Err())
		}
	}
}

// attempt performs one HTTP round trip and classifies the outcome.
func (c *Client) attempt(ctx context.Context, cfg *Config, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	if cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", cfg.Referer)
	}
	if cfg.Title != "" {
		req.Header.Set("X-Title", cfg.Title)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("chat request aborted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 4096))
		_ = httpResp.Body.Close()
	}()

	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("upstream returned error status",
			"status_code", httpResp.StatusCode)
		return nil, &UpstreamError{StatusCode: httpResp.StatusCode}
	}

	var parsed completionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrInvalidResponse)
	}

	content := parsed.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("%w: no message content in response", ErrInvalidResponse)
	}

	return classifyContent(content), nil
}

// buildPayload assembles the request body: model, the [system, user] message
// pair, the tuned parameters, and any configured extra parameters spread
// alongside them.
func buildPayload(cfg *Config, userMessage string) map[string]any {
	payload := map[string]any{
		"model": cfg.Model,
		"messages": []Message{
			{Role: "system", Content: cfg.SystemMessage},
			{Role: "user", Content: userMessage},
		},
		"temperature": cfg.Temperature,
		"max_tokens":  cfg.MaxTokens,
	}

	for k, v := range cfg.ExtraParameters {
		payload[k] = v
	}

	return payload
}

// classifyContent normalizes the raw message content. Schema policing happens
// in the orchestrator; this path is intentionally lenient so that raw text
// and non-flashcard JSON pass through unchanged.
func classifyContent(content string) *Response {
	var decoded any
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		return &Response{
			Answer: content,
			Note:   "Response was not in JSON format",
		}
	}

	if obj, ok := decoded.(map[string]any); ok {
		if cards, ok := obj["flashcards"].([]any); ok {
			if reencoded, err := json.Marshal(obj); err == nil {
				return &Response{
					Answer: string(reencoded),
					Note:   fmt.Sprintf("Generated %d flashcards", len(cards)),
				}
			}
		}
	}

	return &Response{
		Answer: content,
		Note:   "Response was in JSON format but not flashcards structure",
	}
}
