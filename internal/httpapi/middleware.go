package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"moderbot/internal/logging"
	"moderbot/internal/services"
)

// requestLogger carries chi's request id into the services context and logs
// one line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := services.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
			r = r.WithContext(ctx)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []logging.Attr{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Int("bytes", ww.BytesWritten()),
				logging.Duration("elapsed", time.Since(start)),
				logging.String("remote", r.RemoteAddr),
			}
			reqLogger := logging.WithContext(ctx, logger)
			switch {
			case status >= http.StatusInternalServerError:
				reqLogger.Warn("api request failed", logging.Args(attrs...)...)
			default:
				reqLogger.Debug("api request", logging.Args(attrs...)...)
			}
		})
	}
}
