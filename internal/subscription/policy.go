// internal/subscription/policy.go
//
// Who may issue which command.  The role table lives in acl; this file adds
// the ownership rules:
//
//   - A client may request, reopen, read, or list only its own records.
//   - An admin may request or reopen on behalf of another user only when
//     auth.allow_admin_on_behalf is enabled.

package subscription

import (
	"github.com/yanizio/portal/internal/acl"
	"github.com/yanizio/portal/internal/apperr"
	"github.com/yanizio/portal/internal/auth"
)

// Read-side actions checked against the acl table.
const (
	actionGet        = "get"
	actionListByUser = "list_by_user"
	actionListAll    = "list_all"
)

// authorizeRole checks the actor's role for action before any record is
// read.
func authorizeRole(actor auth.Actor, action string) error {
	if !actor.Role.Valid() {
		return &apperr.AuthorizationError{Command: action, Role: string(actor.Role), Reason: "unknown role"}
	}
	if actor.ID == "" {
		return &apperr.AuthorizationError{Command: action, Role: string(actor.Role), Reason: "missing actor id"}
	}
	if !acl.Allowed(actor.Role, acl.Subscription, action) {
		return &apperr.AuthorizationError{Command: action, Role: string(actor.Role)}
	}
	return nil
}

// authorizeOwner applies the ownership rules for action on a record owned
// by ownerID.
func authorizeOwner(actor auth.Actor, action, ownerID string, allowOnBehalf bool) error {
	if actor.ID == ownerID {
		return nil
	}
	switch action {
	case string(CmdRequest), string(CmdReopen):
		if actor.IsAdmin() && allowOnBehalf {
			return nil
		}
		if actor.IsAdmin() {
			return &apperr.AuthorizationError{
				Command: action, Role: string(actor.Role),
				Reason: "acting on behalf of another user is disabled",
			}
		}
		return &apperr.AuthorizationError{
			Command: action, Role: string(actor.Role),
			Reason: "record belongs to another user",
		}
	case actionGet, actionListByUser:
		if actor.IsAdmin() {
			return nil
		}
		return &apperr.AuthorizationError{
			Command: action, Role: string(actor.Role),
			Reason: "record belongs to another user",
		}
	}
	// Admin-only commands were settled by authorizeRole.
	return nil
}
