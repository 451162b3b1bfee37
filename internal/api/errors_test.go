package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tenxcards/cards-api/internal/auth"
	"github.com/tenxcards/cards-api/internal/generation"
	"github.com/tenxcards/cards-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "generation error carries its own status",
			err: &generation.Error{
				Code:   generation.CodeRateLimitExceeded,
				Status: http.StatusTooManyRequests,
			},
			want: http.StatusTooManyRequests,
		},
		{
			name: "wrapped generation error",
			err: fmt.Errorf("handler: %w", &generation.Error{
				Code:   generation.CodeInvalidSourceText,
				Status: http.StatusBadRequest,
			}),
			want: http.StatusBadRequest,
		},
		{name: "expired token", err: auth.ErrExpiredToken, want: http.StatusUnauthorized},
		{name: "invalid token", err: auth.ErrInvalidToken, want: http.StatusUnauthorized},
		{name: "not found", err: store.ErrGenerationNotFound, want: http.StatusNotFound},
		{name: "invalid entity", err: store.ErrInvalidEntity, want: http.StatusBadRequest},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Run("generation error message passes through", func(t *testing.T) {
		err := &generation.Error{
			Code:    generation.CodeNetwork,
			Status:  http.StatusInternalServerError,
			Message: "failed to reach the AI provider",
			Err:     errors.New("dial tcp 10.0.0.1:443: i/o timeout"),
		}
		assert.Equal(t, "failed to reach the AI provider", GetSafeErrorMessage(err))
	})

	t.Run("raw errors get a generic message", func(t *testing.T) {
		err := errors.New("pq: duplicate key value violates unique constraint")
		assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(err))
	})

	t.Run("nil error", func(t *testing.T) {
		assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	})
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, generation.CodeDBInsert, GetErrorCode(&generation.Error{Code: generation.CodeDBInsert}))
	assert.Empty(t, GetErrorCode(errors.New("boom")))
}
