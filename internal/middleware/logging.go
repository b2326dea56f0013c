package middleware

import (
	"net/http"
	"time"

	"github.com/forkful/gateway/internal/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLog logs method, path, status and duration for each request.
func RequestLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			logger.Info(logger.MIDDLEWARE, "%s %s -> %d (%s)",
				r.Method, r.URL.Path, recorder.status, time.Since(start))
		})
	}
}
