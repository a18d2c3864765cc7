package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Session is the server-side record of an authenticated browser.
// Role, permissions and organization are fixed at bind time; Touch returns a new value
// instead of mutating the receiver.
type Session struct {
	ID                string
	UserID            string
	Email             string
	Name              string
	Role              Role
	Permissions       PermissionSet
	Organization      string
	Tokens            ProviderTokens
	CreatedAt         time.Time
	ExpiresAt         time.Time
	AbsoluteExpiresAt time.Time
}

// SessionParams groups the inputs of NewSession.
type SessionParams struct {
	ID           string
	UserID       string
	Email        string
	Name         string
	Role         Role
	Permissions  []string
	Organization string
	Tokens       ProviderTokens
	Now          time.Time
	IdleTimeout  time.Duration
	MaxLifetime  time.Duration
}

// NewSession validates params and builds a Session.
func NewSession(p SessionParams) (Session, error) {
	if p.ID == "" {
		return Session{}, errors.New("session ID is required")
	}
	if p.UserID == "" || p.Email == "" {
		return Session{}, errors.New("session user is required")
	}
	if !p.Role.Valid() {
		return Session{}, fmt.Errorf("%w: role %q", ErrUnauthorized, p.Role)
	}
	if p.Role == RoleClient && strings.TrimSpace(p.Organization) == "" {
		return Session{}, fmt.Errorf("%w: client session without organization", ErrUnauthorized)
	}
	if p.IdleTimeout <= 0 || p.MaxLifetime <= 0 {
		return Session{}, errors.New("session lifetimes must be positive")
	}
	now := p.Now.UTC()
	absolute := now.Add(p.MaxLifetime)
	return Session{
		ID:                p.ID,
		UserID:            p.UserID,
		Email:             p.Email,
		Name:              p.Name,
		Role:              p.Role,
		Permissions:       NewPermissionSet(p.Permissions),
		Organization:      strings.TrimSpace(p.Organization),
		Tokens:            p.Tokens,
		CreatedAt:         now,
		ExpiresAt:         minTime(now.Add(p.IdleTimeout), absolute),
		AbsoluteExpiresAt: absolute,
	}, nil
}

// Expired reports whether the session is no longer usable at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt) || !now.Before(s.AbsoluteExpiresAt)
}

// Touch returns a copy with the sliding expiry moved to now+idle, capped at the absolute expiry.
func (s Session) Touch(now time.Time, idle time.Duration) Session {
	next := s
	next.ExpiresAt = minTime(now.UTC().Add(idle), s.AbsoluteExpiresAt)
	return next
}

// Authorized reports whether the session carries a usable role.
func (s Session) Authorized() bool {
	if !s.Role.Valid() {
		return false
	}
	return s.Role != RoleClient || s.Organization != ""
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// sessionRecord is the persisted JSON shape of a Session.
type sessionRecord struct {
	ID                string         `json:"id"`
	UserID            string         `json:"user_id"`
	Email             string         `json:"email"`
	Name              string         `json:"name,omitempty"`
	Role              Role           `json:"role"`
	Permissions       []string       `json:"permissions,omitempty"`
	Organization      string         `json:"organization,omitempty"`
	Tokens            ProviderTokens `json:"tokens"`
	CreatedAt         time.Time      `json:"created_at"`
	ExpiresAt         time.Time      `json:"expires_at"`
	AbsoluteExpiresAt time.Time      `json:"absolute_expires_at"`
}

// MarshalJSON encodes the session for server-side storage.
func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionRecord{
		ID:                s.ID,
		UserID:            s.UserID,
		Email:             s.Email,
		Name:              s.Name,
		Role:              s.Role,
		Permissions:       s.Permissions.Slice(),
		Organization:      s.Organization,
		Tokens:            s.Tokens,
		CreatedAt:         s.CreatedAt,
		ExpiresAt:         s.ExpiresAt,
		AbsoluteExpiresAt: s.AbsoluteExpiresAt,
	})
}

// UnmarshalJSON decodes a stored session. Role validity is checked by callers, not here,
// so a corrupted record is still loadable and can be rejected explicitly.
func (s *Session) UnmarshalJSON(data []byte) error {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*s = Session{
		ID:                rec.ID,
		UserID:            rec.UserID,
		Email:             rec.Email,
		Name:              rec.Name,
		Role:              rec.Role,
		Permissions:       NewPermissionSet(rec.Permissions),
		Organization:      rec.Organization,
		Tokens:            rec.Tokens,
		CreatedAt:         rec.CreatedAt,
		ExpiresAt:         rec.ExpiresAt,
		AbsoluteExpiresAt: rec.AbsoluteExpiresAt,
	}
	return nil
}
