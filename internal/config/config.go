package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm"        validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains the settings needed to verify caller identity tokens.
// Token issuance lives in the identity collaborator, not in this service.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// LLMConfig contains all upstream chat endpoint settings.
type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key"     validate:"required"`
	Endpoint    string  `mapstructure:"endpoint"    validate:"required,url"`
	Model       string  `mapstructure:"model"       validate:"required"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=1"`
	MaxTokens   int     `mapstructure:"max_tokens"  validate:"required,gt=0"`

	// Referer and Title identify this application to the upstream provider.
	Referer string `mapstructure:"referer"`
	Title   string `mapstructure:"title"`

	// Transport retry policy for network failures.
	MaxRetries       int `mapstructure:"max_retries"         validate:"gte=0"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" validate:"gt=0"`

	// Process-local admission guard in front of the upstream API.
	RateLimitMaxRequests int `mapstructure:"rate_limit_max_requests" validate:"gt=0"`
	RateLimitWindowMs    int `mapstructure:"rate_limit_window_ms"    validate:"gt=0"`
}

// GenerationConfig contains the durable per-user generation quota.
type GenerationConfig struct {
	QuotaMaxRequests int `mapstructure:"quota_max_requests" validate:"gt=0"`
	QuotaWindowHours int `mapstructure:"quota_window_hours" validate:"gt=0"`
}
