package middleware

import (
	"context"

	"github.com/angelmondragon/storefront-engine/internal/session"
)

type contextKey string

const (
	ctxSessionID contextKey = "session_id"
	ctxSession   contextKey = "session"
)

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// SessionFromContext returns the live session attached by the Session middleware.
func SessionFromContext(ctx context.Context) *session.Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*session.Session); ok {
		return v
	}
	return nil
}

// WithSession injects the session and its identifier into the context.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if s == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, ctxSessionID, s.ID())
	return context.WithValue(ctx, ctxSession, s)
}
