package middleware

import (
	"net/http"

	"github.com/forkful/gateway/pkg/httpext"
	"github.com/rs/zerolog/log"
)

// Recover converts handler panics into a 500 response instead of tearing
// down the connection.
func Recover() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().
						Interface("panic", rec).
						Str("path", r.URL.Path).
						Msg("Handler panicked")
					httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
