package handler

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Logger writes one structured access-log line per request.
func Logger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

// CORS allows any origin; the shell only listens locally.
var CORS = cors.Handler(cors.Options{
	AllowedOrigins:       []string{"*"},
	AllowedMethods:       []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	AllowedHeaders:       []string{"Accept", "Content-Type", "X-Request-ID"},
	ExposedHeaders:       []string{"X-Request-ID"},
	MaxAge:               300,
	OptionsSuccessStatus: http.StatusNoContent,
})
