package ratelimit

import (
	"encoding/json"
	"net/http"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

// Middleware refuses over-limit requests with 429 and
// {"error":"RATE_LIMIT_EXCEEDED"} before they reach next.
// Cache failures admit the request.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Decide(r.Context(), r.URL.Path, IdentityFromRequest(r))
			if err != nil {
				logging.RateLimitWarn("cache unavailable for %s, admitting: %v", d.Key, err)
			}
			if !d.Allowed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": types.MsgRateLimitExceeded})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
