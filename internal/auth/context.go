package auth

import "context"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID  int64
	Email   string
	IsAdmin bool
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
