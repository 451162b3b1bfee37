package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/tenxcards/cards-api/internal/auth"
	"github.com/tenxcards/cards-api/internal/chat"
	"github.com/tenxcards/cards-api/internal/config"
	"github.com/tenxcards/cards-api/internal/generation"
	"github.com/tenxcards/cards-api/internal/platform/postgres"
	"github.com/tenxcards/cards-api/internal/ratelimit"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	verifier          auth.Verifier
	chatClient        *chat.Client
	generationService generation.Service
}

// newApplication wires the full dependency graph: database plus migrations,
// token verifier, upstream chat client, stores, and the generation service.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, logger); err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg.Auth, logger)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	chatClient, err := setupChatClient(cfg.LLM, logger)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}

	generationStore := postgres.NewGenerationStore(db, logger)
	errorLogStore := postgres.NewErrorLogStore(db, logger)

	generationService, err := generation.NewService(
		chatClient,
		generationStore,
		errorLogStore,
		generation.QuotaConfig{
			MaxRequests: cfg.Generation.QuotaMaxRequests,
			Window:      time.Duration(cfg.Generation.QuotaWindowHours) * time.Hour,
		},
		logger,
	)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}

	return &application{
		config:            cfg,
		logger:            logger,
		db:                db,
		verifier:          verifier,
		chatClient:        chatClient,
		generationService: generationService,
	}, nil
}

// setupChatClient builds the upstream chat client from configuration,
// including the process-local rate limiter and retry policy.
func setupChatClient(cfg config.LLMConfig, logger *slog.Logger) (*chat.Client, error) {
	chatConfig := chat.Config{
		APIKey:        cfg.APIKey,
		Endpoint:      cfg.Endpoint,
		Model:         cfg.Model,
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
		SystemMessage: generation.DefaultSystemMessage,
		Referer:       cfg.Referer,
		Title:         cfg.Title,
	}

	limiter := ratelimit.New(
		cfg.RateLimitMaxRequests,
		time.Duration(cfg.RateLimitWindowMs)*time.Millisecond,
	)

	return chat.New(chatConfig, logger,
		chat.WithLimiter(limiter),
		chat.WithRetryPolicy(cfg.MaxRetries, time.Duration(cfg.RetryBaseDelayMs)*time.Millisecond),
	)
}

// cleanup releases application resources. Called during graceful shutdown.
func (app *application) cleanup() {
	closeQuietly(app.db, app.logger)
}

func closeQuietly(db *sql.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("Failed to close database connection", "error", err)
	}
}
