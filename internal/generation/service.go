package generation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tenxcards/cards-api/internal/chat"
	"github.com/tenxcards/cards-api/internal/domain"
	"github.com/tenxcards/cards-api/internal/store"
)

// Default per-user quota: 200 generation calls per trailing 24 hours,
// counted against durable generation records.
const (
	DefaultQuotaMaxRequests = 200
	DefaultQuotaWindow      = 24 * time.Hour
)

// ChatClient is the upstream boundary the orchestrator calls. Implemented by
// *chat.Client.
type ChatClient interface {
	Send(ctx context.Context, userMessage string) (*chat.Response, error)
	Model() string
}

// QuotaConfig bounds how many generation calls a user may make within a
// rolling window. This is a durable, database-backed quota, independent of
// the chat client's process-local rate limiter.
type QuotaConfig struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultQuotaConfig returns the standard per-user quota.
func DefaultQuotaConfig() QuotaConfig {
	return QuotaConfig{
		MaxRequests: DefaultQuotaMaxRequests,
		Window:      DefaultQuotaWindow,
	}
}

// Result is returned to the caller after a successful generation.
type Result struct {
	ID                  uuid.UUID                  `json:"id"`
	Model               string                     `json:"model"`
	GeneratedCount      int                        `json:"generated_count"`
	SourceTextLength    int                        `json:"source_text_length"`
	GenerationDuration  int64                      `json:"generation_duration"`
	CreatedAt           time.Time                  `json:"created_at"`
	Status              string                     `json:"status"`
	FlashcardsProposals []domain.FlashcardProposal `json:"flashcards_proposals"`
}

// Service orchestrates one generation call: quota check, upstream chat call,
// proposal parsing, and the audit record writes.
type Service interface {
	// CreateGeneration generates flashcard proposals from the source text on
	// behalf of the given user. All failures are returned as *Error with a
	// stable code and HTTP-equivalent status; every failure past input
	// validation also attempts an error-log write.
	CreateGeneration(ctx context.Context, userID uuid.UUID, sourceText string) (*Result, error)
}

type service struct {
	chat        ChatClient
	generations store.GenerationStore
	errorLogs   store.GenerationErrorLogStore
	quota       QuotaConfig
	logger      *slog.Logger

	// now is overridable in tests.
	now func() time.Time
}

// NewService creates a generation Service.
// Returns a CONFIGURATION_ERROR if a required dependency is missing; the
// service fails fast at construction rather than on the first request.
func NewService(
	chatClient ChatClient,
	generations store.GenerationStore,
	errorLogs store.GenerationErrorLogStore,
	quota QuotaConfig,
	logger *slog.Logger,
) (Service, error) {
	if chatClient == nil {
		return nil, newError(CodeConfiguration, http.StatusInternalServerError,
			"chat client is not configured", nil)
	}
	if generations == nil {
		return nil, newError(CodeConfiguration, http.StatusInternalServerError,
			"generation store is not configured", nil)
	}
	if errorLogs == nil {
		return nil, newError(CodeConfiguration, http.StatusInternalServerError,
			"error log store is not configured", nil)
	}
	if quota.MaxRequests <= 0 || quota.Window <= 0 {
		return nil, newError(CodeConfiguration, http.StatusInternalServerError,
			"generation quota is not configured", nil)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		chat:        chatClient,
		generations: generations,
		errorLogs:   errorLogs,
		quota:       quota,
		logger:      logger.With("component", "generation_service"),
		now:         time.Now,
	}, nil
}

// CreateGeneration implements Service.
func (s *service) CreateGeneration(
	ctx context.Context,
	userID uuid.UUID,
	sourceText string,
) (*Result, error) {
	if userID == uuid.Nil {
		return nil, newError(CodeInvalidInput, http.StatusBadRequest,
			"user ID is required", nil)
	}

	// Caller mistake: rejected before the quota check, the upstream call,
	// and the error log.
	if err := domain.ValidateSourceText(sourceText); err != nil {
		return nil, newError(CodeInvalidSourceText, http.StatusBadRequest,
			fmt.Sprintf("source text must be between %d and %d characters",
				domain.MinSourceTextLength, domain.MaxSourceTextLength),
			err)
	}

	result, err := s.generate(ctx, userID, sourceText)
	if err != nil {
		svcErr := classifyError(err)

		s.logger.Error("generation failed",
			"user_id", userID,
			"error_code", svcErr.Code,
			"error", err)

		s.writeErrorLog(ctx, userID, sourceText, svcErr)
		return nil, svcErr
	}

	return result, nil
}

// generate runs the happy path. Returned errors are classified and logged by
// the caller.
func (s *service) generate(
	ctx context.Context,
	userID uuid.UUID,
	sourceText string,
) (*Result, error) {
	// Duration covers everything from before the quota check to completion.
	start := s.now()

	if err := s.checkQuota(ctx, userID, start); err != nil {
		return nil, err
	}

	resp, err := s.chat.Send(ctx, BuildPrompt(sourceText))
	if err != nil {
		return nil, err
	}

	proposals, err := parseProposals(resp.Answer)
	if err != nil {
		s.logger.Warn("AI answer failed proposal parsing",
			"user_id", userID,
			"note", resp.Note,
			"error", err)
		return nil, newError(CodeInvalidResponseFormat, http.StatusInternalServerError,
			"failed to parse AI response", err)
	}

	duration := s.now().Sub(start)

	gen, err := domain.NewGeneration(userID, s.chat.Model(), len(proposals), sourceText, duration)
	if err != nil {
		return nil, err
	}

	if err := s.generations.Create(ctx, gen); err != nil {
		return nil, newError(CodeDBInsert, http.StatusInternalServerError,
			"failed to create generation record", err)
	}

	s.logger.Info("generation completed",
		"generation_id", gen.ID,
		"user_id", userID,
		"generated_count", gen.GeneratedCount,
		"duration_ms", gen.GenerationDuration)

	return &Result{
		ID:                  gen.ID,
		Model:               gen.Model,
		GeneratedCount:      gen.GeneratedCount,
		SourceTextLength:    gen.SourceTextLength,
		GenerationDuration:  gen.GenerationDuration,
		CreatedAt:           gen.CreatedAt,
		Status:              "completed",
		FlashcardsProposals: proposals,
	}, nil
}

// checkQuota enforces the durable per-user quota by counting generation
// records in the trailing window. The read-then-insert pair is not
// transactional; a concurrent duplicate from the same user in the same
// instant is an accepted race for this soft limit.
func (s *service) checkQuota(ctx context.Context, userID uuid.UUID, now time.Time) error {
	since := now.Add(-s.quota.Window)

	count, err := s.generations.CountForUserSince(ctx, userID, since)
	if err != nil {
		return newError(CodeRateLimitCheck, http.StatusInternalServerError,
			"failed to check generation quota", err)
	}

	if count >= s.quota.MaxRequests {
		return newError(CodeRateLimitExceeded, http.StatusTooManyRequests,
			fmt.Sprintf("rate limit exceeded, maximum %d requests allowed per %v",
				s.quota.MaxRequests, s.quota.Window),
			nil)
	}

	return nil
}

// writeErrorLog records the failed attempt. Best effort by design: failures
// are logged and swallowed so they never mask the primary error, and the
// insert survives caller cancellation.
func (s *service) writeErrorLog(ctx context.Context, userID uuid.UUID, sourceText string, svcErr *Error) {
	entry, err := domain.NewGenerationErrorLog(
		userID,
		svcErr.Code,
		svcErr.Error(),
		s.chat.Model(),
		sourceText,
	)
	if err != nil {
		s.logger.Warn("failed to build generation error log entry",
			"user_id", userID,
			"error", err)
		return
	}

	if err := s.errorLogs.Create(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("failed to write generation error log",
			"user_id", userID,
			"error_code", svcErr.Code,
			"error", err)
	}
}
