package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/harborline/backoffice/internal/data"
	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/domain/model"
	"github.com/harborline/backoffice/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider   = (*MockIdentityProvider)(nil)
	_ ports.TokenVerifier      = (*StubVerifier)(nil)
	_ ports.StateStore         = (*UnavailableStateStore)(nil)
	_ ports.UserRepository     = (*MemoryUserRepository)(nil)
	_ ports.ShipmentRepository = (*MemoryShipmentRepository)(nil)
	_ ports.RoleDirectory      = (*RecordingRoleDirectory)(nil)
	_ ports.AuditSink          = (*RecordingAuditSink)(nil)
)

// MockIdentityProvider simulates an IdP for tests with deterministic URLs and tokens.
type MockIdentityProvider struct {
	ExchangeFunc func(ctx context.Context, code string) (ports.TokenResponse, error)
	UserInfoFunc func(ctx context.Context, accessToken string) (map[string]any, error)

	AuthURL   string
	LogoutURL string
	IDToken   string
	Exchanges int
	UserInfos int
	LastCode  string
	mu        sync.Mutex
}

// NewMockIdentityProvider creates a MockIdentityProvider with sensible defaults.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{
		AuthURL: "https://idp.example/authorize",
		IDToken: "mock-id-token",
	}
}

func (m *MockIdentityProvider) AuthCodeURL(state string) string {
	return m.AuthURL + "?response_type=code&state=" + url.QueryEscape(state)
}

func (m *MockIdentityProvider) Exchange(ctx context.Context, code string) (ports.TokenResponse, error) {
	m.mu.Lock()
	m.Exchanges++
	m.LastCode = code
	m.mu.Unlock()
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code)
	}
	return ports.TokenResponse{
		AccessToken: "mock-access-" + code,
		IDToken:     m.IDToken,
		Expiry:      time.Now().Add(time.Hour),
	}, nil
}

func (m *MockIdentityProvider) UserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	m.mu.Lock()
	m.UserInfos++
	m.mu.Unlock()
	if m.UserInfoFunc != nil {
		return m.UserInfoFunc(ctx, accessToken)
	}
	return map[string]any{}, nil
}

func (m *MockIdentityProvider) EndSessionURL(postLogoutRedirect string) string {
	if m.LogoutURL == "" {
		return ""
	}
	if postLogoutRedirect == "" {
		return m.LogoutURL
	}
	return m.LogoutURL + "?post_logout_redirect_uri=" + url.QueryEscape(postLogoutRedirect)
}

// ExchangeCount returns how many exchanges were attempted.
func (m *MockIdentityProvider) ExchangeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Exchanges
}

// StubVerifier returns fixed claims (or an error) for any token.
type StubVerifier struct {
	VerifyFunc func(ctx context.Context, raw string) (domainauth.IdentityClaims, error)
	Claims     domainauth.IdentityClaims
	Err        error
}

func (s *StubVerifier) Verify(ctx context.Context, raw string) (domainauth.IdentityClaims, error) {
	if s.VerifyFunc != nil {
		return s.VerifyFunc(ctx, raw)
	}
	if s.Err != nil {
		return domainauth.IdentityClaims{}, s.Err
	}
	return s.Claims, nil
}

// UnavailableStateStore fails every call with ports.ErrStoreUnavailable.
type UnavailableStateStore struct{}

func (UnavailableStateStore) Put(context.Context, string, time.Time, time.Duration) error {
	return fmt.Errorf("%w: connection refused", ports.ErrStoreUnavailable)
}

func (UnavailableStateStore) Consume(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, fmt.Errorf("%w: connection refused", ports.ErrStoreUnavailable)
}

// MemoryUserRepository is a concurrency-safe in-memory user store keyed by lowercased email.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]model.User
	seq   int
}

// NewMemoryUserRepository creates an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]model.User)}
}

func (r *MemoryUserRepository) UpsertByEmail(_ context.Context, in model.UpsertUserInput) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return model.User{}, data.ErrEmailRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		r.seq++
		u = model.User{ID: fmt.Sprintf("user-%d", r.seq), Email: email, CreatedAt: in.LoginAt}
	}
	u.Subject = in.Subject
	if in.DisplayName != "" {
		u.DisplayName = in.DisplayName
	}
	u.LastLoginAt = in.LoginAt
	u.UpdatedAt = in.LoginAt
	r.users[email] = u
	return u, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, data.ErrUserNotFound
	}
	return u, nil
}

// MemoryShipmentRepository serves a fixed slice of shipments.
type MemoryShipmentRepository struct {
	mu        sync.Mutex
	shipments []model.Shipment
	// LastFilter is the most recent filter received by List.
	LastFilter model.ShipmentFilter
}

// NewMemoryShipmentRepository creates a repository seeded with shipments.
func NewMemoryShipmentRepository(seed ...model.Shipment) *MemoryShipmentRepository {
	return &MemoryShipmentRepository{shipments: slices.Clone(seed)}
}

func (r *MemoryShipmentRepository) List(_ context.Context, f model.ShipmentFilter) ([]model.Shipment, error) {
	f = f.Normalize()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LastFilter = f
	var out []model.Shipment
	for _, s := range r.shipments {
		if f.Organization != "" && s.Organization != f.Organization {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		out = append(out, s)
	}
	if f.Offset >= len(out) {
		return []model.Shipment{}, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryShipmentRepository) GetByID(_ context.Context, id string) (model.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.shipments {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Shipment{}, data.ErrShipmentNotFound
}

func (r *MemoryShipmentRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.shipments {
		if s.ID == id {
			r.shipments = slices.Delete(r.shipments, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

// RecordingRoleDirectory records role assignments and optionally fails.
type RecordingRoleDirectory struct {
	mu          sync.Mutex
	Assignments []model.RoleAssignment
	Err         error
}

func (d *RecordingRoleDirectory) AssignRole(_ context.Context, in model.RoleAssignment) error {
	if d.Err != nil {
		return d.Err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Assignments = append(d.Assignments, in)
	return nil
}

// RecordingAuditSink keeps audit events in memory.
type RecordingAuditSink struct {
	mu     sync.Mutex
	events []model.AuditEvent
}

func (s *RecordingAuditSink) Record(_ context.Context, ev model.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of the recorded events.
func (s *RecordingAuditSink) Events() []model.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}
