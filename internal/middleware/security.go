// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects industry-standard headers on every response:
//
//   - Strict-Transport-Security forces HTTPS (2 years + preload)
//   - Content-Security-Policy denies everything; the portal serves JSON only
//   - X-Frame-Options is the click-jacking defence
//   - X-Content-Type-Options stops MIME sniffing
//   - Referrer-Policy drops path and query from Referer
//   - Cache-Control keeps subscription data out of shared caches
//
// Notes
// -----
//   - Headers are set *before* next.ServeHTTP, since anything added after
//     the handler writes its status line never reaches the client.
//     Handlers that need a different value simply overwrite it.
//   - Oxford commas, two spaces after periods.

package middleware

import "net/http"

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	headers := [...][2]string{
		{"Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload"},
		{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Cache-Control", "no-store"},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range headers {
			h.Set(kv[0], kv[1])
		}
		next.ServeHTTP(w, r)
	})
}
