package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"speech-analytics-service/internal/observability/logging"
)

// RequestLogger logs one structured line per request. Server errors log at
// error level and client errors at warn.
func RequestLogger(next http.Handler) http.Handler {
	logger := logging.WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		var event *zerolog.Event
		var msg string
		switch {
		case status >= 500:
			event, msg = logger.Error(), "Request completed with server error"
		case status >= 400:
			event, msg = logger.Warn(), "Request completed with client error"
		default:
			event, msg = logger.Info(), "Request completed successfully"
		}
		event.
			Str("requestId", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("latency", time.Since(start)).
			Str("clientIp", r.RemoteAddr).
			Str("userAgent", r.UserAgent()).
			Msg(msg)
	})
}
