package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tenxcards/cards-api/internal/domain"
	"github.com/tenxcards/cards-api/internal/store"
)

// ErrorLogStore implements store.GenerationErrorLogStore using PostgreSQL.
type ErrorLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewErrorLogStore creates a new PostgreSQL implementation of the
// store.GenerationErrorLogStore interface.
func NewErrorLogStore(db store.DBTX, logger *slog.Logger) *ErrorLogStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &ErrorLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "error_log_store")),
	}
}

// Ensure ErrorLogStore implements store.GenerationErrorLogStore
var _ store.GenerationErrorLogStore = (*ErrorLogStore)(nil)

// Create implements store.GenerationErrorLogStore.Create
// The orchestrator treats these inserts as best-effort; errors are returned
// to the caller but are expected to be logged and swallowed there.
func (s *ErrorLogStore) Create(ctx context.Context, entry *domain.GenerationErrorLog) error {
	if err := entry.Validate(); err != nil {
		s.logger.Warn("error log validation failed during create",
			slog.String("error", err.Error()),
			slog.String("user_id", entry.UserID.String()))
		return err
	}

	query := `
		INSERT INTO generations_error_logs
			(id, user_id, error_code, error_message, model,
			 source_text_hash, source_text_length, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.UserID,
		entry.ErrorCode,
		entry.ErrorMessage,
		entry.Model,
		entry.SourceTextHash,
		entry.SourceTextLength,
		entry.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolationCode {
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, entry.UserID)
		}

		s.logger.Error("failed to create generation error log",
			slog.String("error", err.Error()),
			slog.String("user_id", entry.UserID.String()),
			slog.String("error_code", entry.ErrorCode))
		return err
	}

	s.logger.Debug("generation error log created",
		slog.String("user_id", entry.UserID.String()),
		slog.String("error_code", entry.ErrorCode))
	return nil
}
