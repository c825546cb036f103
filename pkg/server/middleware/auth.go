package middleware

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Authorizer decides whether a request may proceed. The server treats it
// as opaque; deployments plug in their own check.
type Authorizer func(req *http.Request) error

// Auth rejects requests the authorizer refuses. A nil authorizer allows
// everything.
func Auth(authorize Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if authorize != nil {
				if err := authorize(req); err != nil {
					zerolog.Ctx(req.Context()).Warn().Err(err).Msg("request rejected")
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, req)
		})
	}
}
