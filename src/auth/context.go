package auth

import "context"

type contextKey string

const authenticatedKey contextKey = "authenticated"

// IsAuthenticated reports whether RequireAPIKey let this request through a
// shared-secret check, so a handler shared between an open read route and a
// gated admin route can still tell which path it was reached on.
func IsAuthenticated(ctx context.Context) bool {
	v, _ := ctx.Value(authenticatedKey).(bool)
	return v
}

func withAuthenticated(ctx context.Context) context.Context {
	return context.WithValue(ctx, authenticatedKey, true)
}
