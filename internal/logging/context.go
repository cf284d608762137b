package logging

import (
	"context"

	"go.uber.org/zap"
)

type sessionCtxKey struct{}
type turnCtxKey struct{}

// WithSessionKey attaches a session key to the context for log correlation.
func WithSessionKey(ctx context.Context, sessionKey string) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sessionKey)
}

// WithTurnID attaches a turn ID to the context for log correlation.
func WithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, turnCtxKey{}, turnID)
}

// ContextFields extracts correlation fields from the context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if v, ok := ctx.Value(sessionCtxKey{}).(string); ok && v != "" {
		fields = append(fields, zap.String("session.key", v))
	}
	if v, ok := ctx.Value(turnCtxKey{}).(string); ok && v != "" {
		fields = append(fields, zap.String("turn.id", v))
	}
	return fields
}
