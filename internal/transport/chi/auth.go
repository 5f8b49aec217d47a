package chi

import (
	"net/http"
	"strings"

	"github.com/kailas-cloud/sentinel/internal/domain"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware validates Bearer tokens against principals (token to
// principal) and stores the authenticated principal in the request context.
// If principals is empty, authentication is disabled (pass-through).
func BearerAuthMiddleware(principals map[string]string) func(http.Handler) http.Handler {
	valid := make(map[string]string, len(principals))
	for token, principal := range principals {
		if token != "" && principal != "" {
			valid[token] = principal
		}
	}

	return func(next http.Handler) http.Handler {
		if len(valid) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			principal, ok := valid[auth[len(bearerPrefix):]]
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}
