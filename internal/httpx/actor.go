package httpx

import (
	"net/http"

	"github.com/yanizio/portal/internal/auth"
)

// Actor returns the authenticated caller.  When none is attached it writes
// 401 and reports false; handlers return immediately in that case.
func Actor(w http.ResponseWriter, r *http.Request) (auth.Actor, bool) {
	a, ok := auth.ActorFrom(r.Context())
	if !ok {
		WriteStatus(w, http.StatusUnauthorized)
	}
	return a, ok
}
