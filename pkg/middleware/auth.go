package middleware

import (
	"net/http"

	"bankops/pkg/auth"
	apperrors "bankops/pkg/errors"
	"bankops/pkg/logger"
)

// Authenticate requires a valid bearer token and attaches the caller identity
// to the request context.
func Authenticate(authenticator *auth.Authenticator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				_ = apperrors.WriteError(w, apperrors.Unauthorized("bearer token required"))
				return
			}

			identity, err := authenticator.Parse(token)
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", RequestID(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				_ = apperrors.WriteError(w, apperrors.Unauthorized("invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}
