// internal/auth/context.go
//
// Actor identity carried on the request context.
//
// Usage
// -----
//
//	// Attach the verified actor (done by Middleware).
//	ctx = auth.WithActor(ctx, auth.Actor{ID: "u-123", Role: auth.RoleClient})
//
//	// Downstream code retrieves it.
//	actor, ok := auth.ActorFrom(ctx)
//
// Notes
// -----
// • The role is a fixed enum validated at the boundary; nothing downstream
//   infers a role from UI context.
// • Oxford commas, two spaces after periods.

package auth

import "context"

// Role is the coarse identity class supplied by the session layer.
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAdmin
}

// Actor is the caller of a command.
type Actor struct {
	ID   string
	Role Role
}

// System is the actor used by CLI tooling (seeding, maintenance).
var System = Actor{ID: "system", Role: RoleAdmin}

// IsAdmin is a convenience for Role == RoleAdmin.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// actorKey is unexported to avoid context-key collisions.
type actorKey struct{}

// WithActor returns a new context carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom extracts the actor from ctx.  ok is false when none is set.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
