package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mydudu/screening-api/internal/api/shared"
	"github.com/mydudu/screening-api/internal/platform/logger"
)

// Trace assigns every request a trace ID, echoes it in the X-Request-ID
// response header, and stores a request-scoped logger in the context. It
// logs each request once it completes.
func Trace(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context(), base, r.Header.Get(shared.TraceIDHeader))
			w.Header().Set(shared.TraceIDHeader, shared.GetTraceID(ctx))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.FromContextOrDefault(ctx, base).Debug("request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)))
		})
	}
}
