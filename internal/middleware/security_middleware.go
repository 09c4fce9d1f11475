package middleware

import "net/http"

// SecurityHeaders adds a fixed set of security headers to every response.
//
// Route and geocode responses are derived from volatile upstream data, so
// Cache-Control and Pragma forbid storing them; a cached route can outlive
// the station data it was synthesized from. The remaining headers
// (nosniff, the cross-origin isolation pair, the restrictive CSP and the
// legacy XSS filter) keep a response inert when a browser renders it
// directly instead of a client consuming the JSON.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-origin")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}
