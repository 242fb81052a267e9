package auth

import (
	"net/http"
	"strings"
)

// CookieName is the browser cookie that may carry the backend access token.
const CookieName = "ekaya_jwt"

// ForwardToken copies the caller's access token into the request context so
// backend calls made on its behalf carry it. Requests without a token pass
// through and use the configured token.
func ForwardToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := extractToken(r); token != "" {
			r = r.WithContext(WithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken checks the cookie first (browser clients), then the
// Authorization header (API clients).
func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
