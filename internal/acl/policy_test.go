// internal/acl/policy_test.go
//
// Unit-tests for the static role policy and the route gates.
//
// Run: go test ./internal/acl -v

package acl

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yanizio/portal/internal/auth"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		role     auth.Role
		resource string
		action   string
		want     bool
	}{
		{auth.RoleAdmin, Subscription, "approve", true},
		{auth.RoleClient, Subscription, "approve", false},
		{auth.RoleClient, Subscription, "stop", false},
		{auth.RoleClient, Subscription, "set_grant_window", false},
		{auth.RoleClient, Subscription, "reopen", true},
		{auth.RoleClient, Subscription, "list_all", false},
		{auth.RoleClient, Catalog, "create", false},
		{auth.RoleClient, Catalog, "list", true},
		{auth.RoleAdmin, Catalog, "delete", true},
		{auth.Role("root"), Catalog, "list", false},
		{auth.RoleAdmin, "billing", "charge", false},
	}
	for _, c := range cases {
		if got := Allowed(c.role, c.resource, c.action); got != c.want {
			t.Errorf("Allowed(%s, %s, %s) = %v, want %v", c.role, c.resource, c.action, got, c.want)
		}
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequireRole(auth.RoleAdmin)(ok)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no actor: status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithActor(req.Context(), auth.Actor{ID: "c", Role: auth.RoleClient}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("client: status = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithActor(req.Context(), auth.Actor{ID: "a", Role: auth.RoleAdmin}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin: status = %d, want 200", rr.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequirePermission(Catalog, "create")(ok)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(auth.WithActor(req.Context(), auth.Actor{ID: "c", Role: auth.RoleClient}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}
