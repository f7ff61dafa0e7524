// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

// ActorKey is the context key for the acting user id.
type ActorKey struct{}

// WithActorID returns a context carrying the acting user id.
func WithActorID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ActorKey{}, userID)
}

// ActorFromContext returns the acting user id, or empty string if not set.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ActorKey{}).(string); ok {
		return v
	}
	return ""
}

// LogAttrs returns slog key/value pairs describing the context.
func LogAttrs(ctx context.Context) []any {
	if actor := ActorFromContext(ctx); actor != "" {
		return []any{"user_id", actor}
	}
	return nil
}
