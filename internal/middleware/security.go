// internal/middleware/security.go
//
// Security-header middleware.
//
// Seeds conservative defaults on every response:
//
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  drops path/query from Referer
//   • Permissions-Policy        –  disables powerful features by default
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP; the HTTP adapter uses Set, so
//   an action that sends its own value replaces the default.
// • HSTS and CSP are left to the TLS-terminating proxy, which knows the
//   public origin.
// • Enabled by `http.security_headers`.
// • Oxford commas, two spaces after periods.

// Package middleware holds small, composable HTTP wrappers.
package middleware

import "net/http"

var securityDefaults = [...][2]string{
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
}

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityDefaults {
			if h.Get(kv[0]) == "" {
				h.Set(kv[0], kv[1])
			}
		}
		next.ServeHTTP(w, r)
	})
}
