package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenxcards/cards-api/internal/ratelimit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(endpoint string) Config {
	return Config{
		APIKey:        "test-key",
		Endpoint:      endpoint,
		Model:         "openai/gpt-4o-mini",
		Temperature:   0.7,
		MaxTokens:     1000,
		SystemMessage: "You are a helpful assistant.",
		Referer:       "https://cards.example.com",
		Title:         "cards-api",
	}
}

// completionBody builds an upstream response wrapping the given content.
func completionBody(t *testing.T, content string) string {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	require.NoError(t, err)
	return string(body)
}

// flakyTransport fails the first failures round trips at the transport level,
// then delegates to the default transport.
type flakyTransport struct {
	failures int32
	calls    int32
}

func (tr *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	call := atomic.AddInt32(&tr.calls, 1)
	if call <= atomic.LoadInt32(&tr.failures) {
		return nil, errors.New("connection refused")
	}
	return http.DefaultTransport.RoundTrip(req)
}

func TestClient_Send_ParsesFlashcardsContent(t *testing.T) {
	t.Parallel()

	content := `{"flashcards":[{"front":"Q","back":"A"}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, completionBody(t, content))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL), testLogger())
	require.NoError(t, err)

	resp, err := client.Send(context.Background(), "generate cards")
	require.NoError(t, err)

	assert.JSONEq(t, content, resp.Answer)
	assert.Equal(t, "Generated 1 flashcards", resp.Note)
}

func TestClient_Send_ContentClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		wantNote string
	}{
		{
			name:     "non-JSON content passes through",
			content:  "Here are some flashcards for you!",
			wantNote: "Response was not in JSON format",
		},
		{
			name:     "JSON without flashcards array passes through",
			content:  `{"cards":[{"front":"Q"}]}`,
			wantNote: "Response was in JSON format but not flashcards structure",
		},
		{
			name:     "JSON scalar passes through",
			content:  `"just a string"`,
			wantNote: "Response was in JSON format but not flashcards structure",
		},
		{
			name:     "flashcards field that is not an array passes through",
			content:  `{"flashcards":"none"}`,
			wantNote: "Response was in JSON format but not flashcards structure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, completionBody(t, tt.content))
			}))
			defer server.Close()

			client, err := New(testConfig(server.URL), testLogger())
			require.NoError(t, err)

			resp, err := client.Send(context.Background(), "generate cards")
			require.NoError(t, err)

			assert.Equal(t, tt.content, resp.Answer)
			assert.Equal(t, tt.wantNote, resp.Note)
		})
	}
}

func TestClient_Send_RequestShape(t *testing.T) {
	t.Parallel()

	var gotAuth, gotReferer, gotTitle string
	var gotPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = io.WriteString(w, completionBody(t, "ok"))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.ExtraParameters = map[string]any{"top_p": 0.9}

	client, err := New(cfg, testLogger())
	require.NoError(t, err)

	_, err = client.Send(context.Background(), "some user text")
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "https://cards.example.com", gotReferer)
	assert.Equal(t, "cards-api", gotTitle)

	assert.Equal(t, "openai/gpt-4o-mini", gotPayload["model"])
	assert.InDelta(t, 0.7, gotPayload["temperature"], 1e-9)
	assert.InDelta(t, 1000, gotPayload["max_tokens"], 1e-9)
	assert.InDelta(t, 0.9, gotPayload["top_p"], 1e-9)

	messages, ok := gotPayload["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)

	first := messages[0].(map[string]any)
	second := messages[1].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "You are a helpful assistant.", first["content"])
	assert.Equal(t, "user", second["role"])
	assert.Equal(t, "some user text", second["content"])
}

func TestClient_Send_EmptyMessage(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL), testLogger())
	require.NoError(t, err)

	_, err = client.Send(context.Background(), "   \n\t ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "no network call for empty input")
}

func TestClient_Send_LocalRateLimit(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, completionBody(t, "ok"))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL), testLogger(),
		WithLimiter(ratelimit.New(1, time.Minute)))
	require.NoError(t, err)

	_, err = client.Send(context.Background(), "first")
	require.NoError(t, err)

	_, err = client.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrRateLimited)

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Greater(t, rateErr.RetryAfter, time.Duration(0))

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "denied call must not reach the network")
}

func TestClient_Send_UpstreamStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		wantErr    error
		wantCode   string
	}{
		{
			name:       "429 maps to upstream rate limited",
			statusCode: http.StatusTooManyRequests,
			wantErr:    ErrUpstreamRateLimited,
			wantCode:   "HTTP_429",
		},
		{
			name:       "503 maps to upstream error",
			statusCode: http.StatusServiceUnavailable,
			wantErr:    ErrUpstream,
			wantCode:   "HTTP_503",
		},
		{
			name:       "400 maps to upstream error",
			statusCode: http.StatusBadRequest,
			wantErr:    ErrUpstream,
			wantCode:   "HTTP_400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client, err := New(testConfig(server.URL), testLogger(),
				WithRetryPolicy(3, time.Millisecond))
			require.NoError(t, err)

			_, err = client.Send(context.Background(), "generate cards")
			assert.ErrorIs(t, err, tt.wantErr)

			var upstreamErr *UpstreamError
			require.ErrorAs(t, err, &upstreamErr)
			assert.Equal(t, tt.wantCode, upstreamErr.Code())

			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "upstream errors are not retried")
		})
	}
}

func TestClient_Send_InvalidResponseShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "not JSON", body: "oops"},
		{name: "empty choices", body: `{"choices":[]}`},
		{name: "missing content", body: `{"choices":[{"message":{}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client, err := New(testConfig(server.URL), testLogger())
			require.NoError(t, err)

			_, err = client.Send(context.Background(), "generate cards")
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestClient_Send_RetriesTransportFailures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, completionBody(t, "ok"))
	}))
	defer server.Close()

	transport := &flakyTransport{failures: 2}
	baseDelay := 20 * time.Millisecond

	client, err := New(testConfig(server.URL), testLogger(),
		WithHTTPClient(&http.Client{Transport: transport}),
		WithRetryPolicy(3, baseDelay))
	require.NoError(t, err)

	start := time.Now()
	resp, err := client.Send(context.Background(), "generate cards")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Answer)
	assert.Equal(t, int32(3), atomic.LoadInt32(&transport.calls),
		"two failures then a success means three attempts")

	// Two backoff delays: baseDelay then 2*baseDelay.
	assert.GreaterOrEqual(t, elapsed, 3*baseDelay)
}

func TestClient_Send_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	transport := &flakyTransport{failures: 100}

	client, err := New(testConfig("http://127.0.0.1:0"), testLogger(),
		WithHTTPClient(&http.Client{Transport: transport}),
		WithRetryPolicy(3, time.Millisecond))
	require.NoError(t, err)

	_, err = client.Send(context.Background(), "generate cards")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, int32(4), atomic.LoadInt32(&transport.calls),
		"initial attempt plus three retries")
}

func TestClient_Send_CancellationSkipsRetries(t *testing.T) {
	t.Parallel()

	transport := &flakyTransport{failures: 100}

	client, err := New(testConfig("http://127.0.0.1:0"), testLogger(),
		WithHTTPClient(&http.Client{Transport: transport}),
		WithRetryPolicy(3, 10*time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = client.Send(ctx, "generate cards")
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, time.Second, "cancellation must not wait out the backoff")
}

func TestClient_UpdateConfig(t *testing.T) {
	t.Parallel()

	client, err := New(testConfig("http://localhost:1"), testLogger())
	require.NoError(t, err)

	t.Run("rejects invalid temperature", func(t *testing.T) {
		badTemp := 1.5
		err := client.UpdateConfig(ConfigUpdate{Temperature: &badTemp})
		assert.Error(t, err)
		assert.Equal(t, "openai/gpt-4o-mini", client.Model(), "failed update must not apply")
	})

	t.Run("rejects cleared API key", func(t *testing.T) {
		empty := ""
		err := client.UpdateConfig(ConfigUpdate{APIKey: &empty})
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("applies partial update", func(t *testing.T) {
		model := "anthropic/claude-3-haiku"
		require.NoError(t, client.UpdateConfig(ConfigUpdate{Model: &model}))
		assert.Equal(t, model, client.Model())
	})
}

func TestNew_ValidatesConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "missing API key",
			mutate:  func(c *Config) { c.APIKey = "" },
			wantErr: ErrMissingAPIKey,
		},
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { c.Endpoint = "" },
			wantErr: ErrMissingEndpoint,
		},
		{
			name:    "missing model",
			mutate:  func(c *Config) { c.Model = "" },
			wantErr: ErrMissingModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig("http://localhost:1")
			tt.mutate(&cfg)

			_, err := New(cfg, testLogger())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("invalid tuning parameters", func(t *testing.T) {
		t.Parallel()

		for _, temp := range []float64{-0.1, 1.1} {
			cfg := testConfig("http://localhost:1")
			cfg.Temperature = temp
			_, err := New(cfg, testLogger())
			assert.Error(t, err, fmt.Sprintf("temperature %v must be rejected", temp))
		}

		cfg := testConfig("http://localhost:1")
		cfg.MaxTokens = 0
		_, err := New(cfg, testLogger())
		assert.Error(t, err)
	})
}
