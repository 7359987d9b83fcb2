// Package shield provides reusable HTTP hardening middleware for the embel
// API: request body caps and per-IP rate limiting on the AI-backed endpoints.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(shield.MaxBody(64 << 20))
//	r.Use(shield.NewRateLimiter(rules).Middleware)
package shield

import "net/http"

// MaxBody returns middleware that caps the request body size for every
// request. Uploads (multipart) and JSON bodies alike — the API has no
// endpoint that legitimately needs more than the configured cap.
func MaxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
