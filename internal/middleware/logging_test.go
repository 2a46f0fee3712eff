package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rest-graphql/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: "error", Format: "json"})
}

func TestLoggingGeneratesRequestID(t *testing.T) {
	var seenID string
	handler := Logging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = logging.RequestID(r.Context())
		require.NotNil(t, logging.FromContext(r.Context()))
	}))

	r := httptest.NewRequest("POST", "/graphql", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.NotEmpty(t, seenID)
	_, err := uuid.Parse(seenID)
	assert.NoError(t, err)
	assert.Equal(t, seenID, w.Header().Get(RequestIDHeader))
}

func TestLoggingPropagatesIncomingRequestID(t *testing.T) {
	var seenID string
	handler := Logging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = logging.RequestID(r.Context())
	}))

	r := httptest.NewRequest("POST", "/graphql", nil)
	r.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, "req-123", seenID)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestStatusWriterCapturesCode(t *testing.T) {
	handler := Logging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/graphql", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusWriterDefaultsToOK(t *testing.T) {
	sw := &statusWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	_, err := sw.Write([]byte("body"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, sw.statusCode)

	// Later WriteHeader calls do not overwrite the first.
	sw.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusOK, sw.statusCode)
}
