package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tenxcards/cards-api/internal/domain"
)

// GenerationStore defines the interface for generation record persistence.
type GenerationStore interface {
	// Create saves a new generation record to the store.
	// It handles domain validation internally.
	// Returns ErrInvalidEntity if the user does not exist.
	Create(ctx context.Context, generation *domain.Generation) error

	// GetByID retrieves a generation record by its unique ID.
	// Returns ErrGenerationNotFound if the record does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error)

	// CountForUserSince returns how many generation records the user has
	// created at or after the given instant. Used for the durable per-user
	// quota check.
	CountForUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

// GenerationErrorLogStore defines the interface for failed-attempt audit rows.
type GenerationErrorLogStore interface {
	// Create saves a new error log entry. Callers treat failures here as
	// best-effort: a log-write failure must never replace the primary error.
	Create(ctx context.Context, entry *domain.GenerationErrorLog) error
}
