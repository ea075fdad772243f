package shared

import "context"

type principalContextKey struct{}

// Principal identifies the authenticated actor for the current request.
// A zero ID means the request is unauthenticated.
type Principal struct {
	ID    int64
	Email string
}

// ContextWithPrincipal stores the authenticated principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context. The second return
// reports whether a principal was attached at all.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
