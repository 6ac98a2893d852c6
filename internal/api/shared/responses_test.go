package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusCreated, map[string]int{"id": 7})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":7}`, w.Body.String())
}

func TestRespondWithError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), TraceIDKey, "trace-1"))
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusNotFound, "Task not found")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Task not found", resp.Error)
	assert.Equal(t, "trace-1", resp.TraceID)
}

func TestRespondWithErrorAndLog(t *testing.T) {
	log, buf := logger.NewTestLogger(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", nil)
	req = req.WithContext(logger.WithLogger(req.Context(), log))
	w := httptest.NewRecorder()

	cause := errors.New("dial postgres://mc:hunter22@db:5432/mc failed")
	RespondWithErrorAndLog(w, req, http.StatusServiceUnavailable, "storage_unavailable", "Storage unavailable", cause)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Storage unavailable", resp.Error)
	assert.Equal(t, "storage_unavailable", resp.Kind)
	assert.NotContains(t, w.Body.String(), "hunter22")

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, slog.LevelError.String(), last["level"])
	assert.NotContains(t, last["error"], "hunter22")
}
