package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/seojun/letterpress/internal/logger"
	"github.com/seojun/letterpress/internal/metrics"
)

const correlationHeader = "X-Correlation-ID"

// CorrelationIDMiddleware attaches a correlation ID to every request.
// An incoming X-Correlation-ID header is honored so IDs survive proxies;
// otherwise a new one is generated. The ID is echoed in the response.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(correlationHeader)
		if correlationID == "" {
			correlationID = logger.NewCorrelationID()
		}

		w.Header().Set(correlationHeader, correlationID)
		ctx := logger.WithCorrelationID(r.Context(), correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the response status code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware embeds a request-scoped logger in the context and
// logs one line per request with method, path, status, and duration.
func LoggingMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := log.With().
				Str("correlation_id", logger.CorrelationIDFromContext(r.Context())).
				Logger()
			ctx := logger.WithLogger(r.Context(), reqLog)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			reqLog.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", duration).
				Msg("request handled")

			routePath := chi.RouteContext(r.Context()).RoutePattern()
			if routePath == "" {
				routePath = r.URL.Path
			}
			metrics.APIRequestsTotal.WithLabelValues(r.Method, routePath, strconv.Itoa(rec.status)).Inc()
			metrics.APIRequestDuration.WithLabelValues(r.Method, routePath).Observe(duration.Seconds())
		})
	}
}

// RecoverMiddleware converts panics into 500 responses instead of
// tearing down the connection.
func RecoverMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().
						Interface("panic", rec).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("panic in handler")
					respondError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
