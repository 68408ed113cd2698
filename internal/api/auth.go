package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerAuth guards the control endpoints with a constant-time token
// comparison. The token lives in the platform secret store; only local
// clients that can read it (the CLI, the menu-bar UI) may drive the
// daemon.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
