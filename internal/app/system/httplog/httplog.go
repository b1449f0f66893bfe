// Package httplog holds the request-scoped middleware every route shares:
// a request id and one structured log line per request.
package httplog

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/confinedspace/internal/app/system/auth"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestIDFrom returns the request id set by RequestID.
func RequestIDFrom(ctx context.Context) (string, bool) {
	rid := middleware.GetReqID(ctx)
	return rid, rid != ""
}

// RequestID gives every request an id and echoes it in the response. With
// trustHeader an incoming X-Request-ID is kept; otherwise a new UUID is
// always generated. The id is stored under chi's middleware.RequestIDKey,
// so middleware.GetReqID reads it too.
func RequestID(trustHeader bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := ""
			if trustHeader {
				rid = r.Header.Get(HeaderRequestID)
			}
			if rid == "" || len(rid) > 128 {
				rid = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, rid)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), middleware.RequestIDKey, rid)))
		})
	}
}

// Logger writes one line per request. Server errors log at error level,
// client errors at warn, the rest at info. It must run inside
// LoadSessionUser to report the user id.
func Logger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			}
			if rid, ok := RequestIDFrom(r.Context()); ok {
				fields = append(fields, zap.String("request_id", rid))
			}
			if u, ok := auth.CurrentUser(r); ok {
				fields = append(fields, zap.String("user_id", u.ID))
			}

			switch {
			case status >= 500:
				logger.Error("request", fields...)
			case status >= 400:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
		})
	}
}
