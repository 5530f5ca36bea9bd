package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func corsRequest(t *testing.T, handler http.Handler, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/api/v1/health", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCORSLocalhostOrigin(t *testing.T) {
	handler := CORS()(okHandler(nil))

	rec := corsRequest(t, handler, http.MethodGet, "http://localhost:3000")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("expected localhost origin to be allowed, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("expected no credentials header on a cookie-free API, got %q", got)
	}
}

func TestCORSConfiguredOrigin(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://audit.example.org, https://ops.example.org")
	handler := CORS()(okHandler(nil))

	rec := corsRequest(t, handler, http.MethodGet, "https://ops.example.org")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example.org" {
		t.Errorf("expected configured origin to be allowed, got %q", got)
	}
	if got := rec.Header().Get("Vary"); got != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", got)
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	handler := CORS()(okHandler(nil))

	rec := corsRequest(t, handler, http.MethodGet, "https://evil.example.com")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header for unknown origin, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, DELETE, OPTIONS" {
		t.Errorf("expected the API's method surface, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	handler := CORS()(okHandler(&called))

	rec := corsRequest(t, handler, http.MethodOptions, "http://localhost:8080")

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204 for preflight, got %d", rec.Code)
	}
	if called {
		t.Error("preflight request should not reach the handler")
	}
}

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost", true},
		{"http://localhost:3000", true},
		{"https://localhost:8443", true},
		{"https://example.com", false},
		{"http://localhost.example.com", false},
		{"localhost:3000", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			if got := isLocalhost(tt.origin); got != tt.want {
				t.Errorf("isLocalhost(%q) = %t, want %t", tt.origin, got, tt.want)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(okHandler(nil))

	rec := corsRequest(t, handler, http.MethodGet, "")

	want := map[string]string{
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "no-referrer",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("expected %s %q, got %q", header, value, got)
		}
	}
}
