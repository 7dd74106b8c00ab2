package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"scoreflow/internal/apierror"
)

// authMiddleware returns a middleware that validates bearer tokens.
// If token is empty, no authentication is required and all requests pass through.
// Otherwise, requests must include "Authorization: Bearer <token>" header.
func authMiddleware(token string, s *apiServer, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="scoreflow"`)
			s.writeError(w, r, &apierror.Error{Code: apierror.CodeUnauthorized, Message: "unauthorized"})
			return
		}
		next(w, r)
	}
}
