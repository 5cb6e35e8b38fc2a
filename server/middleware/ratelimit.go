package middleware

import (
	"net/http"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/resilience"
)

// RateLimit rejects requests with 429 once the shared limiter runs dry.
// A nil limiter lets everything through.
func RateLimit(limiter *resilience.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, errors.RateLimited("api"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
