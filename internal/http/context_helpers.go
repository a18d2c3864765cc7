package httpx

import (
	"context"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type sessionKey struct{}

// SetSessionInContext returns a child context that carries the given session.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetUserSessionFromContext returns the user session from context and a boolean indicating presence.
// A present session may still lack a usable role; the gateway rejects those before handlers run.
func GetUserSessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	if session, ok := ctx.Value(sessionKey{}).(*domainauth.Session); ok && session != nil {
		return session, true
	}
	return nil, false
}

// GetSessionFromContext retrieves the session from the request context, or nil.
func GetSessionFromContext(ctx context.Context) *domainauth.Session {
	if s, ok := GetUserSessionFromContext(ctx); ok {
		return s
	}
	return nil
}

// LandingPath is where a session goes after login or when it strays outside its allow-list.
func LandingPath(sess *domainauth.Session) string {
	if sess != nil && sess.Role == domainauth.RoleClient {
		return clientDashboardPath(sess.Organization)
	}
	return "/"
}
