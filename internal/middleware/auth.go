package middleware

import (
	"net/http"
	"strings"

	"github.com/commercelab/mollie-sync/internal/api/httpx"
	"github.com/commercelab/mollie-sync/internal/auth"
)

// RequireToken guards the admin API. The public webhook and return routes
// never go through this.
func RequireToken(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
				return
			}
			token := strings.TrimSpace(ah[len("Bearer "):])
			if _, err := tm.Parse(token); err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
