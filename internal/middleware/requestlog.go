// internal/middleware/requestlog.go
//
// Access log and request-scoped logger.
//
// Context
// -------
// Runs after chi's RequestID middleware.  For every request it derives a
// child zap logger carrying the request ID, stores it with
// logger.WithContext so handlers and the contact controller log with the
// same ID, and writes one access line when the handler returns.
//
// Notes
// -----
// • 5xx logs at error, 4xx at warn, everything else at info.
// • Oxford commas, two spaces after periods.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/serenity/internal/logger"
)

// RequestLog logs one line per request through base.
func RequestLog(base *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := base.With("request_id", chimw.GetReqID(r.Context()))
			ctx := logger.WithContext(r.Context(), log)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"took", time.Since(start),
			}
			switch {
			case status >= 500:
				log.Errorw("http request", fields...)
			case status >= 400:
				log.Warnw("http request", fields...)
			default:
				log.Infow("http request", fields...)
			}
		})
	}
}
