// Package session keeps the two process-wide in-memory registries: login
// sessions and CSRF tokens. Both are explicit services with a Start/Shutdown
// lifecycle and are safe for concurrent use.
package session

import "context"

// Identity is who a request acts as. The zero value is anonymous.
type Identity struct {
	Username string
}

// Anonymous is the identity of a request without a valid session.
var Anonymous = Identity{}

// User returns the identity of a logged-in user.
func User(username string) Identity {
	return Identity{Username: username}
}

// IsAnonymous reports whether no user is logged in.
func (id Identity) IsAnonymous() bool {
	return id.Username == ""
}

func (id Identity) String() string {
	if id.IsAnonymous() {
		return "anonymous"
	}
	return id.Username
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
