package auth

import "context"

type contextKey string

const UserIDKey contextKey = "user_id"

func WithIdentity(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// IdentityFromContext returns the identity injected by the interceptors or
// the HTTP middleware.
func IdentityFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}
