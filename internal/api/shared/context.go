// Package shared holds the request decoding, response writing and request
// context helpers used by the API handlers and middleware.
package shared

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/platform/logger"
)

// ContextKey is the key type for values stored in request contexts.
type ContextKey string

const (
	// OperatorIDContextKey is the context key for the authenticated operator ID.
	OperatorIDContextKey ContextKey = "operatorID"

	// TraceIDHeader is the header used to propagate a caller-supplied trace ID.
	TraceIDHeader = "X-Request-ID"

	// TraceIDLength is the number of random bytes in a generated trace ID.
	TraceIDLength = 16 // 32 hex characters
)

var traceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// SetTraceID stores a trace ID in the context and attaches it to the
// request logger. A caller-supplied ID is reused when it is well formed;
// otherwise a new one is generated.
func SetTraceID(ctx context.Context, base *slog.Logger, supplied string) context.Context {
	traceID := supplied
	if !traceIDPattern.MatchString(traceID) {
		traceID = generateTraceID()
	}
	return logger.WithRequestID(ctx, base, traceID)
}

// GetTraceID retrieves the trace ID from the context, or "" when none is set.
func GetTraceID(ctx context.Context) string {
	return logger.RequestID(ctx)
}

// WithOperatorID stores the authenticated operator in the context.
func WithOperatorID(ctx context.Context, operatorID uuid.UUID) context.Context {
	return context.WithValue(ctx, OperatorIDContextKey, operatorID)
}

// OperatorIDFromContext returns the authenticated operator, if any.
func OperatorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(OperatorIDContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// generateTraceID creates a random trace ID. If crypto/rand fails it falls
// back to a time-based ID rather than a static value.
func generateTraceID() string {
	b := make([]byte, TraceIDLength)
	n, err := rand.Read(b)
	if err != nil || n != TraceIDLength {
		slog.Error("failed to generate secure random trace ID",
			"error", err,
			"bytes_read", n,
			"fallback", "time-based generation")
		return generateFallbackTraceID()
	}
	return hex.EncodeToString(b)
}

func generateFallbackTraceID() string {
	b := make([]byte, TraceIDLength)
	now := time.Now()
	binary.BigEndian.PutUint64(b[:8], uint64(now.UnixNano()))
	binary.BigEndian.PutUint32(b[8:12], uint32(now.Nanosecond()))
	binary.BigEndian.PutUint32(b[12:16], uint32(now.Unix()))
	return hex.EncodeToString(b)
}
