package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/domain/model"
)

// ErrStoreUnavailable marks a transport-level failure of a shared store, as opposed to
// a definitive answer such as "not found".
var ErrStoreUnavailable = errors.New("store unavailable")

// StateStore keeps issued state tokens until they are consumed or expire.
type StateStore interface {
	// Put stores token with the given expiry.
	Put(ctx context.Context, token string, issuedAt time.Time, ttl time.Duration) error
	// Consume atomically looks up and deletes token. found is false when the token
	// was never stored, already consumed, or evicted.
	Consume(ctx context.Context, token string) (issuedAt time.Time, found bool, err error)
}

// TokenResponse is the token endpoint result of a code exchange.
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       time.Time
}

// IdentityProvider speaks the OAuth2/OIDC endpoints of the external identity provider.
type IdentityProvider interface {
	// AuthCodeURL builds the authorization endpoint redirect for state.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for tokens. One bounded attempt.
	Exchange(ctx context.Context, code string) (TokenResponse, error)
	// UserInfo fetches userinfo claims with the access token.
	UserInfo(ctx context.Context, accessToken string) (map[string]any, error)
	// EndSessionURL returns the provider logout URL with postLogoutRedirect attached,
	// or "" when the provider has no end-session endpoint.
	EndSessionURL(postLogoutRedirect string) string
}

// TokenVerifier verifies identity tokens and extracts trusted claims.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (domainauth.IdentityClaims, error)
}

// ClaimsExtractor reads the application role claim from a decoded claims document.
type ClaimsExtractor interface {
	RoleClaim(claims map[string]any) (domainauth.RoleClaim, error)
}

// SessionStore persists and retrieves user sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteByUser removes every session of userID and returns how many were removed.
	DeleteByUser(ctx context.Context, userID string) (int, error)
	// ListByUser returns the live sessions of userID.
	ListByUser(ctx context.Context, userID string) ([]domainauth.Session, error)
}

// UserRepository persists local user records keyed by verified email.
type UserRepository interface {
	UpsertByEmail(ctx context.Context, in model.UpsertUserInput) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// ShipmentRepository reads and deletes shipment history rows.
type ShipmentRepository interface {
	List(ctx context.Context, filter model.ShipmentFilter) ([]model.Shipment, error)
	GetByID(ctx context.Context, id string) (model.Shipment, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// RoleDirectory writes role claims into the identity system.
type RoleDirectory interface {
	AssignRole(ctx context.Context, in model.RoleAssignment) error
}

// AuditSink records administrative actions. Persistence is owned elsewhere.
type AuditSink interface {
	Record(ctx context.Context, ev model.AuditEvent)
}
