// Package auth carries the acting user identity into the finance core.
// Authentication itself happens in the host; the core only consults the
// resolved identity to authorize transitions.
package auth

import "context"

// Role is the coarse actor class the state machines care about.
type Role string

const (
	// RoleEmployee may create and submit their own sheets and requests.
	RoleEmployee Role = "employee"
	// RoleFinance may verify, approve, reject and pay.
	RoleFinance Role = "finance"
	// RoleAdmin may additionally manage template settings.
	RoleAdmin Role = "admin"
)

// Actor is the authenticated user attached to a request.
type Actor struct {
	UserID   string
	UserName string
	Role     Role
}

// IsFinance reports whether the actor may perform finance transitions.
func (a Actor) IsFinance() bool {
	return a.Role == RoleFinance || a.Role == RoleAdmin
}

// IsAdmin reports whether the actor may mutate template settings.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type contextKey struct{}

// WithActor attaches the actor to the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// FromContext returns the actor attached to the context, if any.
func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(Actor)
	return actor, ok
}
