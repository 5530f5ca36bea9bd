// Package middleware provides HTTP middleware for the audit API.
package middleware

import (
	"net/http"
	"os"
	"strings"
)

// allowedOrigins reads the WEB_ALLOWED_ORIGINS env var (comma-separated)
// into a set of origins permitted to call the API cross-origin.
func allowedOrigins() map[string]struct{} {
	origins := make(map[string]struct{})
	for _, o := range strings.Split(os.Getenv("WEB_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = struct{}{}
		}
	}
	return origins
}

// isLocalhost reports whether the origin is http(s)://localhost on any port.
func isLocalhost(origin string) bool {
	var host string
	switch {
	case strings.HasPrefix(origin, "http://"):
		host = origin[len("http://"):]
	case strings.HasPrefix(origin, "https://"):
		host = origin[len("https://"):]
	default:
		return false
	}
	return host == "localhost" || strings.HasPrefix(host, "localhost:")
}

// originAllowed checks whether a request origin should receive CORS headers.
// Localhost origins are always permitted for development.
func originAllowed(origin string, allowed map[string]struct{}) bool {
	if origin == "" {
		return false
	}
	if isLocalhost(origin) {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

// CORS returns middleware implementing the API's cross-origin policy.
// Allowed origins come from WEB_ALLOWED_ORIGINS; the advertised surface is
// the GET/POST/DELETE JSON and multipart endpoints under /api/v1. The API
// is cookie-free, so credentialed requests are never allowed.
func CORS() func(http.Handler) http.Handler {
	allowed := allowedOrigins()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); originAllowed(origin, allowed) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")

			// Preflight requests end here.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders returns middleware with headers for a JSON-only API:
// responses must never be rendered as documents or embedded in frames.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}
