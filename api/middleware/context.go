package middleware

import (
	"context"

	"github.com/angelmondragon/domiciliarios-backend/pkg/auth/session"
)

type contextKey string

const (
	ctxSession contextKey = "session"
)

// SessionFromContext returns the authenticated session, or nil.
func SessionFromContext(ctx context.Context) *session.Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*session.Session); ok {
		return v
	}
	return nil
}

// UserIDFromContext returns the authenticated user id, or 0.
func UserIDFromContext(ctx context.Context) int {
	if sess := SessionFromContext(ctx); sess != nil {
		return sess.UserID
	}
	return 0
}

// RoleFromContext returns the authenticated role as a string, or "".
func RoleFromContext(ctx context.Context) string {
	if sess := SessionFromContext(ctx); sess != nil {
		return string(sess.Role)
	}
	return ""
}

// WithSession injects the session into the context.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sess)
}
