package middleware

import (
	"context"

	"github.com/Scoutersq/campus-connect-sub001/internal/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores the verified identity in the context (set by RequireAuth).
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the verified identity, ok=false outside RequireAuth.
func GetIdentity(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

// GetAccountID returns the verified account id, "" when unauthenticated.
func GetAccountID(ctx context.Context) string {
	id, _ := ctx.Value(identityKey).(auth.Identity)
	return id.AccountID
}
