package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Source text length bounds enforced before any quota check or upstream call.
const (
	MinSourceTextLength = 1000
	MaxSourceTextLength = 10000
)

// Common validation errors for Generation
var (
	ErrEmptyGenerationID     = errors.New("generation ID cannot be empty")
	ErrEmptyGenerationUserID = errors.New("generation user ID cannot be empty")
	ErrEmptyGenerationModel  = errors.New("generation model cannot be empty")
	ErrInvalidGeneratedCount = errors.New("generated count must be positive")
	ErrEmptySourceTextHash   = errors.New("source text hash cannot be empty")
	ErrSourceTextTooShort    = errors.New("source text is below the minimum length")
	ErrSourceTextTooLong     = errors.New("source text exceeds the maximum length")
)

// Generation is the auditable record of one successful AI generation attempt.
// It is created exactly once per successful attempt and never mutated by this
// service; acceptance and edit counters belong to the flashcard CRUD
// collaborator.
type Generation struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	Model              string    `json:"model"`
	GeneratedCount     int       `json:"generated_count"`
	SourceTextHash     string    `json:"source_text_hash"`
	SourceTextLength   int       `json:"source_text_length"`
	GenerationDuration int64     `json:"generation_duration"` // milliseconds
	CreatedAt          time.Time `json:"created_at"`
}

// NewGeneration creates a new Generation record for the given user and source
// text. It generates a new UUID, hashes the source text, and stamps the
// creation time. Returns an error if validation fails.
func NewGeneration(
	userID uuid.UUID,
	model string,
	generatedCount int,
	sourceText string,
	duration time.Duration,
) (*Generation, error) {
	g := &Generation{
		ID:                 uuid.New(),
		UserID:             userID,
		Model:              model,
		GeneratedCount:     generatedCount,
		SourceTextHash:     HashSourceText(sourceText),
		SourceTextLength:   len(sourceText),
		GenerationDuration: duration.Milliseconds(),
		CreatedAt:          time.Now().UTC(),
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return g, nil
}

// Validate checks if the Generation has valid data.
func (g *Generation) Validate() error {
	if g.ID == uuid.Nil {
		return ErrEmptyGenerationID
	}

	if g.UserID == uuid.Nil {
		return ErrEmptyGenerationUserID
	}

	if g.Model == "" {
		return ErrEmptyGenerationModel
	}

	if g.GeneratedCount <= 0 {
		return ErrInvalidGeneratedCount
	}

	if g.SourceTextHash == "" {
		return ErrEmptySourceTextHash
	}

	return nil
}

// ValidateSourceText checks the raw source text against the length bounds.
// The HTTP layer validates the same bounds, but the orchestrator rejects
// directly as well so it cannot be bypassed by another caller.
func ValidateSourceText(sourceText string) error {
	if len(sourceText) < MinSourceTextLength {
		return ErrSourceTextTooShort
	}
	if len(sourceText) > MaxSourceTextLength {
		return ErrSourceTextTooLong
	}
	return nil
}

// HashSourceText returns the hex-encoded SHA-256 digest of the source text.
// The hash is an audit and de-duplication key, never used for authorization.
func HashSourceText(sourceText string) string {
	sum := sha256.Sum256([]byte(sourceText))
	return hex.EncodeToString(sum[:])
}
