package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tenxcards/cards-api/internal/domain"
	"github.com/tenxcards/cards-api/internal/store"
)

// PostgreSQL error codes
const pgForeignKeyViolationCode = "23503"

// GenerationStore implements store.GenerationStore using a PostgreSQL
// database as the storage backend.
type GenerationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewGenerationStore creates a new PostgreSQL implementation of the
// store.GenerationStore interface. The database handle must be initialized
// and managed by the caller. If logger is nil, a default logger is used.
func NewGenerationStore(db store.DBTX, logger *slog.Logger) *GenerationStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &GenerationStore{
		db:     db,
		logger: logger.With(slog.String("component", "generation_store")),
	}
}

// Ensure GenerationStore implements store.GenerationStore
var _ store.GenerationStore = (*GenerationStore)(nil)

// Create implements store.GenerationStore.Create
// It saves a new generation record, handling domain validation.
// Returns store.ErrInvalidEntity if the user ID doesn't exist (foreign key
// violation).
func (s *GenerationStore) Create(ctx context.Context, generation *domain.Generation) error {
	if err := generation.Validate(); err != nil {
		s.logger.Warn("generation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("generation_id", generation.ID.String()))
		return err
	}

	query := `
		INSERT INTO generations
			(id, user_id, model, generated_count, source_text_hash,
			 source_text_length, generation_duration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		generation.ID,
		generation.UserID,
		generation.Model,
		generation.GeneratedCount,
		generation.SourceTextHash,
		generation.SourceTextLength,
		generation.GenerationDuration,
		generation.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolationCode {
			s.logger.Warn("foreign key violation during generation creation",
				slog.String("error", err.Error()),
				slog.String("generation_id", generation.ID.String()),
				slog.String("user_id", generation.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, generation.UserID)
		}

		s.logger.Error("failed to create generation record",
			slog.String("error", err.Error()),
			slog.String("generation_id", generation.ID.String()),
			slog.String("user_id", generation.UserID.String()))
		return err
	}

	s.logger.Info("generation record created",
		slog.String("generation_id", generation.ID.String()),
		slog.String("user_id", generation.UserID.String()),
		slog.Int("generated_count", generation.GeneratedCount))
	return nil
}

// GetByID implements store.GenerationStore.GetByID
// Returns store.ErrGenerationNotFound if the record does not exist.
func (s *GenerationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error) {
	query := `
		SELECT id, user_id, model, generated_count, source_text_hash,
		       source_text_length, generation_duration, created_at
		FROM generations
		WHERE id = $1
	`

	var generation domain.Generation
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&generation.ID,
		&generation.UserID,
		&generation.Model,
		&generation.GeneratedCount,
		&generation.SourceTextHash,
		&generation.SourceTextLength,
		&generation.GenerationDuration,
		&generation.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("generation record not found", slog.String("generation_id", id.String()))
			return nil, store.ErrGenerationNotFound
		}
		s.logger.Error("failed to get generation record by ID",
			slog.String("error", err.Error()),
			slog.String("generation_id", id.String()))
		return nil, err
	}

	return &generation, nil
}

// CountForUserSince implements store.GenerationStore.CountForUserSince
// It counts the user's generation records created at or after the given
// instant, which backs the durable per-user quota check.
func (s *GenerationStore) CountForUserSince(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) (int, error) {
	query := `
		SELECT COUNT(id)
		FROM generations
		WHERE user_id = $1 AND created_at >= $2
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, userID, since).Scan(&count)
	if err != nil {
		s.logger.Error("failed to count generation records",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, err
	}

	s.logger.Debug("counted generation records for quota check",
		slog.String("user_id", userID.String()),
		slog.Int("count", count))
	return count, nil
}
