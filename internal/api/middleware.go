package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/restart-clinic/scheduling/internal/scheduling"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	callerKey    contextKey = "caller"
)

// RequestIDMiddleware adds a unique request ID to each request context
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs HTTP requests with method, path, status, duration, and request ID
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		requestID := GetRequestID(r.Context())

		log.Printf(
			"method=%s path=%s status=%d duration=%s request_id=%s",
			r.Method,
			r.URL.Path,
			wrapped.statusCode,
			duration,
			requestID,
		)
	})
}

// CallerMiddleware reads the identity the fronting auth layer injects via
// X-Caller-Id and X-Caller-Role. The engine never verifies credentials
// itself; requests without a valid identity are rejected here.
func CallerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get("X-Caller-Id"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "X-Caller-Id must be a valid UUID")
			return
		}

		role := scheduling.Role(r.Header.Get("X-Caller-Role"))
		if role != scheduling.RoleAdmin && role != scheduling.RolePatient {
			writeError(w, http.StatusUnauthorized, "unauthorized", "X-Caller-Role must be ADMIN or PATIENT")
			return
		}

		caller := scheduling.Caller{ID: id, Role: role}
		ctx := context.WithValue(r.Context(), callerKey, caller)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetCaller retrieves the authenticated caller from context. The zero
// Caller (anonymous) comes back on public routes that skip CallerMiddleware.
func GetCaller(ctx context.Context) scheduling.Caller {
	if c, ok := ctx.Value(callerKey).(scheduling.Caller); ok {
		return c
	}
	return scheduling.Caller{}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
