package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/domain/model"
	"github.com/harborline/backoffice/internal/ports"
)

// Session lifetime defaults.
const (
	DefaultSessionIdleTimeout = 8 * time.Hour
	DefaultSessionMaxLifetime = 24 * time.Hour
)

// SessionBinderOptions groups dependencies for SessionBinder.
type SessionBinderOptions struct {
	Users       ports.UserRepository
	Sessions    ports.SessionStore
	IdleTimeout time.Duration
	MaxLifetime time.Duration
	Logger      *slog.Logger     // Optional: structured logger
	Now         func() time.Time // Optional: clock override for tests
	NewID       func() string    // Optional: session ID generator override for tests
}

// SessionBinder turns verified identity claims into a persisted local session.
// Role, permissions and organization come from the claims alone.
type SessionBinder struct {
	users    ports.UserRepository
	sessions ports.SessionStore
	idle     time.Duration
	max      time.Duration
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewSessionBinder constructs a SessionBinder.
func NewSessionBinder(opts SessionBinderOptions) (*SessionBinder, error) {
	if opts.Users == nil {
		return nil, errors.New("UserRepository is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("SessionStore is required")
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = DefaultSessionIdleTimeout
	}
	maxLife := opts.MaxLifetime
	if maxLife <= 0 {
		maxLife = DefaultSessionMaxLifetime
	}
	if idle > maxLife {
		idle = maxLife
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = generateSessionID
	}
	return &SessionBinder{
		users:    opts.Users,
		sessions: opts.Sessions,
		idle:     idle,
		max:      maxLife,
		logger:   logger.With("component", "session_binder"),
		now:      now,
		newID:    newID,
	}, nil
}

// IdleTimeout returns the sliding idle timeout applied to sessions.
func (b *SessionBinder) IdleTimeout() time.Duration { return b.idle }

// MaxLifetime returns the absolute session lifetime.
func (b *SessionBinder) MaxLifetime() time.Duration { return b.max }

// Bind validates the role claim, upserts the local user and persists a new session.
func (b *SessionBinder) Bind(
	ctx context.Context,
	claims domainauth.IdentityClaims,
	tokens domainauth.ProviderTokens,
) (domainauth.Session, error) {
	if !claims.HasRole() {
		return domainauth.Session{}, domainauth.ErrNoRoleClaim
	}
	role, err := domainauth.ParseRole(claims.Role.Name)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("%w: %w", domainauth.ErrUnauthorized, err)
	}
	org := strings.TrimSpace(claims.Role.Organization)
	if role == domainauth.RoleClient && org == "" {
		return domainauth.Session{}, fmt.Errorf("%w: client role without organization", domainauth.ErrUnauthorized)
	}
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return domainauth.Session{}, fmt.Errorf("%w: no verified email", domainauth.ErrUnauthorized)
	}

	now := b.now().UTC()
	user, err := b.users.UpsertByEmail(ctx, model.UpsertUserInput{
		Email:       email,
		Subject:     claims.Subject,
		DisplayName: claims.Name,
		LoginAt:     now,
	})
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("upsert user: %w", err)
	}

	sess, err := domainauth.NewSession(domainauth.SessionParams{
		ID:           b.newID(),
		UserID:       user.ID,
		Email:        user.Email,
		Name:         claims.Name,
		Role:         role,
		Permissions:  claims.Role.Permissions,
		Organization: org,
		Tokens:       tokens,
		Now:          now,
		IdleTimeout:  b.idle,
		MaxLifetime:  b.max,
	})
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("build session: %w", err)
	}
	if saveErr := b.sessions.Save(ctx, sess); saveErr != nil {
		return domainauth.Session{}, fmt.Errorf("save session: %w", saveErr)
	}

	b.logger.DebugContext(ctx, "session bound",
		"user_id", user.ID,
		"role", string(role),
		"organization", org,
		"expires_at", sess.ExpiresAt)
	return sess, nil
}

// generateSessionID creates a cryptographically secure random session ID.
func generateSessionID() string {
	return uuid.New().String()
}
