package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/tenxcards/cards-api/internal/api/shared"
	"github.com/tenxcards/cards-api/internal/domain"
	"github.com/tenxcards/cards-api/internal/generation"
	"github.com/tenxcards/cards-api/internal/platform/logger"
)

// CreateGenerationRequest represents the request body for starting a
// flashcard generation.
type CreateGenerationRequest struct {
	SourceText string `json:"source_text" validate:"required,min=1000,max=10000"`
}

// GenerationHandler handles flashcard generation HTTP requests.
type GenerationHandler struct {
	generationService generation.Service
	logger            *slog.Logger
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(
	generationService generation.Service,
	logger *slog.Logger,
) *GenerationHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for GenerationHandler")
	}

	return &GenerationHandler{
		generationService: generationService,
		logger:            logger.With(slog.String("component", "generation_handler")),
	}
}

// CreateGeneration handles POST /api/generations requests.
// It validates the source text, runs the generation flow, and returns the
// persisted generation metadata together with the flashcard proposals.
func (h *GenerationHandler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract user ID from context (set by auth middleware)
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateGenerationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request body", slog.String("error", err.Error()))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"Invalid request body", err,
			shared.WithErrorCode(generation.CodeInvalidInput))
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		log.Debug("request validation failed",
			slog.String("user_id", userID.String()),
			slog.Int("source_text_length", len(req.SourceText)))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			sourceTextValidationMessage, err,
			shared.WithErrorCode(generation.CodeInvalidSourceText))
		return
	}

	log.Debug("starting flashcard generation",
		slog.String("user_id", userID.String()),
		slog.Int("source_text_length", len(req.SourceText)))

	result, err := h.generationService.CreateGeneration(r.Context(), userID, req.SourceText)
	if err != nil {
		status := MapErrorToStatusCode(err)
		safeMessage := GetSafeErrorMessage(err)

		opts := []shared.ResponseOption{}
		if code := GetErrorCode(err); code != "" {
			opts = append(opts, shared.WithErrorCode(code))
		}

		shared.RespondWithErrorAndLog(w, r, status, safeMessage, err, opts...)
		return
	}

	log.Info("flashcard generation completed",
		slog.String("user_id", userID.String()),
		slog.String("generation_id", result.ID.String()),
		slog.Int("generated_count", result.GeneratedCount))
	shared.RespondWithJSON(w, r, http.StatusCreated, result)
}

// sourceTextValidationMessage mirrors the service's wording so callers see
// one consistent message whichever layer rejects the input first.
var sourceTextValidationMessage = fmt.Sprintf(
	"source text must be between %d and %d characters",
	domain.MinSourceTextLength, domain.MaxSourceTextLength)
