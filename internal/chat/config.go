package chat

import (
	"errors"
	"fmt"
	"maps"
)

// Common configuration errors
var (
	ErrMissingAPIKey   = errors.New("API key is required")
	ErrMissingEndpoint = errors.New("API endpoint is required")
	ErrMissingModel    = errors.New("model name is required")
)

// Config holds the chat client configuration. A Config value is immutable
// once handed to the client: runtime updates produce a fresh merged copy that
// is validated and swapped in atomically, so a request in flight never
// observes a partially-updated configuration.
type Config struct {
	// APIKey authenticates against the upstream endpoint (Bearer scheme).
	APIKey string

	// Endpoint is the full chat-completions URL.
	Endpoint string

	// Model is the upstream model identifier.
	Model string

	// Temperature must be within [0, 1].
	Temperature float64

	// MaxTokens bounds the completion length and must be positive.
	MaxTokens int

	// ExtraParameters are spread onto the request payload alongside model,
	// temperature, and max_tokens.
	ExtraParameters map[string]any

	// SystemMessage is the default system prompt sent as the first message.
	SystemMessage string

	// Referer and Title identify this application to the upstream
	// (HTTP-Referer / X-Title headers).
	Referer string
	Title   string
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Endpoint == "" {
		return ErrMissingEndpoint
	}
	if c.Model == "" {
		return ErrMissingModel
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %v", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}

// ConfigUpdate describes a partial configuration change. Nil fields keep
// their current value; ExtraParameters are merged key-by-key.
type ConfigUpdate struct {
	APIKey          *string
	Endpoint        *string
	Model           *string
	Temperature     *float64
	MaxTokens       *int
	ExtraParameters map[string]any
	SystemMessage   *string
}

// apply merges the update onto a copy of the current configuration.
func (u ConfigUpdate) apply(current Config) Config {
	next := current
	next.ExtraParameters = maps.Clone(current.ExtraParameters)

	if u.APIKey != nil {
		next.APIKey = *u.APIKey
	}
	if u.Endpoint != nil {
		next.Endpoint = *u.Endpoint
	}
	if u.Model != nil {
		next.Model = *u.Model
	}
	if u.Temperature != nil {
		next.Temperature = *u.Temperature
	}
	if u.MaxTokens != nil {
		next.MaxTokens = *u.MaxTokens
	}
	if u.SystemMessage != nil {
		next.SystemMessage = *u.SystemMessage
	}
	if len(u.ExtraParameters) > 0 {
		if next.ExtraParameters == nil {
			next.ExtraParameters = make(map[string]any, len(u.ExtraParameters))
		}
		maps.Copy(next.ExtraParameters, u.ExtraParameters)
	}

	return next
}
