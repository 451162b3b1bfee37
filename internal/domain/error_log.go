package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for GenerationErrorLog
var (
	ErrEmptyErrorLogUserID = errors.New("error log user ID cannot be empty")
	ErrEmptyErrorLogCode   = errors.New("error log code cannot be empty")
)

// GenerationErrorLog records a failed generation attempt. One row is written
// for every failure, independent of the error surfaced to the caller; a
// failure to write the log itself is never escalated.
type GenerationErrorLog struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	ErrorCode        string    `json:"error_code"`
	ErrorMessage     string    `json:"error_message"`
	Model            string    `json:"model"`
	SourceTextHash   string    `json:"source_text_hash"`
	SourceTextLength int       `json:"source_text_length"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewGenerationErrorLog creates a new error log entry for a failed attempt.
func NewGenerationErrorLog(
	userID uuid.UUID,
	errorCode, errorMessage, model, sourceText string,
) (*GenerationErrorLog, error) {
	e := &GenerationErrorLog{
		ID:               uuid.New(),
		UserID:           userID,
		ErrorCode:        errorCode,
		ErrorMessage:     errorMessage,
		Model:            model,
		SourceTextHash:   HashSourceText(sourceText),
		SourceTextLength: len(sourceText),
		CreatedAt:        time.Now().UTC(),
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	return e, nil
}

// Validate checks if the GenerationErrorLog has valid data.
func (e *GenerationErrorLog) Validate() error {
	if e.UserID == uuid.Nil {
		return ErrEmptyErrorLogUserID
	}

	if e.ErrorCode == "" {
		return ErrEmptyErrorLogCode
	}

	return nil
}
