// internal/acl/policy.go
//
// Static role policy for portal resources.
//
// Context
// -------
// Components and services need a fast answer to one question:
//
//	Is role R permitted to perform resource/action?   → `Allowed()`
//
// The table is fixed in code: roles come from the session layer as a
// closed enum, and the set of commands is the lifecycle's own.  Ownership
// rules (a client may act only on its own records) are layered on top by
// the subscription service; this table only answers "which role".
//
// Notes
// -----
// • Unknown roles, resources, or actions are denied.
// • Oxford commas, two spaces after periods.
package acl

import "github.com/yanizio/portal/internal/auth"

// Resource names.
const (
	Catalog      = "catalog"
	Subscription = "subscription"
)

var policy = map[string]map[string][]auth.Role{
	Catalog: {
		"list":   {auth.RoleClient, auth.RoleAdmin},
		"create": {auth.RoleAdmin},
		"update": {auth.RoleAdmin},
		"delete": {auth.RoleAdmin},
	},
	Subscription: {
		"request":          {auth.RoleClient, auth.RoleAdmin},
		"reopen":           {auth.RoleClient, auth.RoleAdmin},
		"approve":          {auth.RoleAdmin},
		"reactivate":       {auth.RoleAdmin},
		"reject":           {auth.RoleAdmin},
		"stop":             {auth.RoleAdmin},
		"set_grant_window": {auth.RoleAdmin},
		"list_all":         {auth.RoleAdmin},
		"list_by_user":     {auth.RoleClient, auth.RoleAdmin},
		"get":              {auth.RoleClient, auth.RoleAdmin},
	},
}

// Allowed reports whether role may perform action on resource.
func Allowed(role auth.Role, resource, action string) bool {
	if !role.Valid() {
		return false
	}
	for _, r := range policy[resource][action] {
		if r == role {
			return true
		}
	}
	return false
}
