// internal/middleware/logging.go
//
// Structured access log.
//
// One INFO line per request through zap.L(), with status, byte count, and
// duration.  5xx responses log at ERROR.  When requestinfo has run, its
// audit fields (client IP, browser, device, bot flag) are appended, and
// chi's request id is included when present.
//
// The wrapper is chi's WrapResponseWriter, which keeps http.Hijacker and
// Unwrap available so the websocket feed can upgrade through it.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/portal/internal/requestinfo"
)

// RequestLog logs one line per completed request.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

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
		if id := chimw.GetReqID(r.Context()); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		fields = append(fields, requestinfo.FromContext(r.Context()).Fields()...)

		if status >= http.StatusInternalServerError {
			zap.L().Error("http request", fields...)
			return
		}
		zap.L().Info("http request", fields...)
	})
}
