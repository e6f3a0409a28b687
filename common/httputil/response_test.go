package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]string{"attack_log_id": "log-1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "log-1", body["attack_log_id"])
}

func TestWriteCodedError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCodedError(w, http.StatusConflict, "concurrency_rejected", "a run is already in progress")

	assert.Equal(t, http.StatusConflict, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "concurrency_rejected", body.Code)
	assert.Equal(t, "a run is already in progress", body.Error)
}

func TestMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowed(w, http.MethodGet, http.MethodPost)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, []string{http.MethodGet, http.MethodPost}, w.Header().Values("Allow"))
}
