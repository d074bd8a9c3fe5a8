// internal/acl/middleware.go
//
// Chi middleware helpers that enforce RBAC at the route level.  Services
// repeat the check at the command boundary; these gates simply fail early
// with 401/403 before a body is decoded.

package acl

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/portal/internal/auth"
)

// RequireRole ensures the current actor holds ANY of the supplied roles.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	if len(roles) == 0 {
		panic("acl.RequireRole: at least one role must be supplied")
	}
	allowSet := make(map[auth.Role]struct{}, len(roles))
	for _, r := range roles {
		allowSet[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := auth.ActorFrom(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if _, ok := allowSet[actor.Role]; ok {
				next.ServeHTTP(w, r)
				return
			}
			zap.L().Debug("acl role denied",
				zap.String("actor", actor.ID),
				zap.String("role", string(actor.Role)),
				zap.String("path", r.URL.Path))
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequirePermission verifies that the actor's role allows resource/action.
func RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := auth.ActorFrom(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if !Allowed(actor.Role, resource, action) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
