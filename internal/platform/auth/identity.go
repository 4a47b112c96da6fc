package auth

import (
	"context"
)

// Identity is the authenticated caller. Subject is the stable user key
// that owns emission records.
type Identity struct {
	Subject  string
	Username string
	Email    string
	Roles    []string
}

type ctxKeyIdentity struct{}

func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	return v, ok
}
