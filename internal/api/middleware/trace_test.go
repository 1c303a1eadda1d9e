package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mydudu/screening-api/internal/api/shared"
	"github.com/mydudu/screening-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace(t *testing.T) {
	t.Parallel() // Enable parallel execution

	log, buf := logger.GetTestLogger(t)

	var seen string
	handler := Trace(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(shared.TraceIDHeader, "client-trace-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "client-trace-123", seen)
	assert.Equal(t, "client-trace-123", rr.Header().Get(shared.TraceIDHeader))

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "client-trace-123", e["request_id"])
	}
	assert.Equal(t, float64(http.StatusTeapot), entries[1]["status"])
}

func TestTrace_GeneratesID(t *testing.T) {
	t.Parallel() // Enable parallel execution

	log, _ := logger.GetTestLogger(t)
	handler := Trace(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Len(t, rr.Header().Get(shared.TraceIDHeader), 2*shared.TraceIDLength)
}
