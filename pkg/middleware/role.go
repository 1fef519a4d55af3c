package middleware

import (
	"net/http"

	"bankops/pkg/auth"
	apperrors "bankops/pkg/errors"

	"github.com/julienschmidt/httprouter"
)

// RequireRole lets the request through only when the authenticated caller has
// one of roles. It expects Authenticate to have run first.
func RequireRole(h httprouter.Handle, roles ...string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		identity, ok := auth.FromContext(r.Context())
		if !ok {
			_ = apperrors.WriteError(w, apperrors.Unauthorized("authentication required"))
			return
		}
		if !identity.HasRole(roles...) {
			_ = apperrors.WriteError(w, apperrors.Forbidden("role "+identity.Role+" may not call this endpoint"))
			return
		}
		h(w, r, ps)
	}
}
