package middlewares

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"medibook/internal/utils"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id, attaches a request scoped
// zerolog logger to the context and writes one access log line.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		logger := log.With().Str("requestId", requestID).Logger()
		ctx := logger.WithContext(r.Context())

		lrw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r.WithContext(ctx))

		level := zerolog.InfoLevel
		if lrw.Status() >= http.StatusInternalServerError {
			level = zerolog.ErrorLevel
		}
		logger.WithLevel(level).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", lrw.Status()).
			Str("ip", utils.ClientIP(r)).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
