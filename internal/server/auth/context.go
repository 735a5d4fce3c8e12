package auth

import "context"

type contextKey struct{}

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// UserID returns the caller's ID, or "" for anonymous contexts.
func UserID(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.UserID
}

func HasRole(ctx context.Context, role string) bool {
	id, ok := FromContext(ctx)
	return ok && id.Role == role
}
