package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)

	RespondWithJSON(w, r, http.StatusCreated, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRespondWithError_IncludesTraceID(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	r = r.WithContext(SetTraceID(r.Context()))

	RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid token", resp.Error)
	assert.Len(t, resp.TraceID, 2*TraceIDLength)
}

func TestRespondWithErrorAndLog_ErrorCode(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/generations", nil)

	RespondWithErrorAndLog(w, r, http.StatusTooManyRequests,
		"Rate limit exceeded", errors.New("quota exhausted"),
		WithErrorCode("RATE_LIMIT_EXCEEDED"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Rate limit exceeded", resp.Error)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", resp.ErrorCode)
}

func TestRespondWithErrorAndLog_NeverLeaksRawError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/generations", nil)

	RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
		"An unexpected error occurred",
		errors.New("dial tcp: connect to postgres://user:secret@db:5432/app failed"))

	assert.NotContains(t, w.Body.String(), "secret")
	assert.NotContains(t, w.Body.String(), "postgres://")
}

func TestTraceID(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		ctx := SetTraceID(context.Background())
		traceID := GetTraceID(ctx)
		assert.Len(t, traceID, 2*TraceIDLength)
	})

	t.Run("missing returns empty", func(t *testing.T) {
		assert.Empty(t, GetTraceID(context.Background()))
	})

	t.Run("unique per call", func(t *testing.T) {
		a := GetTraceID(SetTraceID(context.Background()))
		b := GetTraceID(SetTraceID(context.Background()))
		assert.NotEqual(t, a, b)
	})
}
