package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/harborline/backoffice/internal/adapters/memory"
	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/domain/model"
	mockauth "github.com/harborline/backoffice/internal/mocks/auth"
	"github.com/harborline/backoffice/internal/service"
	"github.com/stretchr/testify/require"
)

// fakeAuth is an in-memory AuthServiceInterface.
type fakeAuth struct {
	mu         sync.Mutex
	sessions   map[string]*domainauth.Session
	beginErr   error
	completeFn func(in service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	completed  []service.CompleteLoginInput
	logoutURL  string
	loggedOut  []string
}

func newFakeAuth(sessions ...*domainauth.Session) *fakeAuth {
	f := &fakeAuth{sessions: map[string]*domainauth.Session{}}
	for _, s := range sessions {
		f.sessions[s.ID] = s
	}
	return f
}

func (f *fakeAuth) BeginLogin(context.Context) (*service.BeginLoginResult, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &service.BeginLoginResult{
		AuthURL:  "https://idp.example/authorize?state=state-token-1",
		State:    "state-token-1",
		StateTTL: 10 * time.Minute,
	}, nil
}

func (f *fakeAuth) CompleteLogin(_ context.Context, in service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
	f.mu.Lock()
	f.completed = append(f.completed, in)
	f.mu.Unlock()
	return f.completeFn(in)
}

func (f *fakeAuth) GetSession(_ context.Context, id string) (*domainauth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeAuth) Logout(_ context.Context, id string) (*service.LogoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	f.loggedOut = append(f.loggedOut, id)
	return &service.LogoutResult{ProviderLogoutURL: f.logoutURL}, nil
}

func testSession(id string, role domainauth.Role, org string) *domainauth.Session {
	now := time.Now().UTC()
	return &domainauth.Session{
		ID:                id,
		UserID:            "user-" + id,
		Email:             id + "@harborline.example",
		Role:              role,
		Organization:      org,
		Tokens:            domainauth.ProviderTokens{AccessToken: "access-secret", RefreshToken: "refresh-secret"},
		CreatedAt:         now,
		ExpiresAt:         now.Add(time.Hour),
		AbsoluteExpiresAt: now.Add(4 * time.Hour),
	}
}

func testShipments() []model.Shipment {
	return []model.Shipment{
		{ID: "s1", BOLNumber: "BOL-1", Organization: "acme", Status: model.ShipmentStatusInTransit},
		{ID: "s2", BOLNumber: "BOL-2", Organization: "globex", Status: model.ShipmentStatusDelivered},
		{ID: "s3", BOLNumber: "BOL-3", Organization: "acme", Status: model.ShipmentStatusDelivered},
	}
}

type routerHarness struct {
	router    *Router
	auth      *fakeAuth
	shipments *mockauth.MemoryShipmentRepository
	directory *mockauth.RecordingRoleDirectory
	audit     *mockauth.RecordingAuditSink
}

// newRouterHarness builds the full router over real services and in-memory stores.
// The sessions admin, office, client (org acme) and broken (no usable role) are signed in.
func newRouterHarness(t *testing.T) *routerHarness {
	t.Helper()
	h := &routerHarness{
		auth: newFakeAuth(
			testSession("admin", domainauth.RoleAdmin, ""),
			testSession("office", domainauth.RoleOffice, ""),
			testSession("client", domainauth.RoleClient, "acme"),
			testSession("broken", domainauth.Role("owner"), ""),
		),
		shipments: mockauth.NewMemoryShipmentRepository(testShipments()...),
		directory: &mockauth.RecordingRoleDirectory{},
		audit:     &mockauth.RecordingAuditSink{},
	}
	guard := service.NewGuard(service.GuardOptions{})
	shipSvc, err := service.NewShipmentService(service.ShipmentServiceOptions{
		Repo: h.shipments, Guard: guard, Audit: h.audit,
	})
	require.NoError(t, err)
	adminSvc, err := service.NewAdminService(service.AdminServiceOptions{
		Directory: h.directory,
		Users:     mockauth.NewMemoryUserRepository(),
		Sessions:  memory.NewSessionStore(),
		Audit:     h.audit,
		Guard:     guard,
	})
	require.NoError(t, err)
	h.router = NewRouter(RouterServices{
		Auth:      h.auth,
		Shipments: shipSvc,
		Admin:     adminSvc,
		Guard:     guard,
	})
	return h
}

// do serves req as the named session ("" for anonymous).
func (h *routerHarness) do(req *http.Request, sessionID string) *httptest.ResponseRecorder {
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// withCSRF adds a matching CSRF cookie and header.
func withCSRF(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "csrf-test-token"})
	req.Header.Set(DefaultCSRFHeaderName, "csrf-test-token")
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
