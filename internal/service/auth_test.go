package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/harborline/backoffice/internal/adapters/memory"
	"github.com/harborline/backoffice/internal/adapters/oidc"
	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/mocks"
	mockauth "github.com/harborline/backoffice/internal/mocks/auth"
	"github.com/harborline/backoffice/internal/observability/metrics"
	"github.com/harborline/backoffice/internal/ports"
	"github.com/harborline/backoffice/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authHarness struct {
	svc      *AuthService
	idp      *mockauth.MockIdentityProvider
	verifier *mockauth.StubVerifier
	sessions *memory.SessionStore
	users    *mockauth.MemoryUserRepository
	clock    *testutil.Clock
	logs     *bytes.Buffer
	metrics  *metrics.Metrics
}

func officeClaims() domainauth.IdentityClaims {
	return domainauth.IdentityClaims{
		Subject: "sub-1",
		Email:   "dana@harborline.example",
		Name:    "Dana Reyes",
		Role:    domainauth.RoleClaim{Name: "Office", Permissions: []string{"shipments:read"}},
	}
}

func newAuthHarness(t *testing.T, provider ports.IdentityProvider) *authHarness {
	t.Helper()
	h := &authHarness{
		idp:      mockauth.NewMockIdentityProvider(),
		verifier: &mockauth.StubVerifier{Claims: officeClaims()},
		users:    mockauth.NewMemoryUserRepository(),
		clock:    testutil.NewClock(testutil.TestTime()),
		logs:     &bytes.Buffer{},
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	h.idp.LogoutURL = "https://idp.example/logout"
	if provider == nil {
		provider = h.idp
	}
	h.sessions = memory.NewSessionStore().WithClock(h.clock.Now)
	logger := slog.New(slog.NewJSONHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	states, err := NewStateTokenService(StateTokenServiceOptions{
		Store:   memory.NewStateStore().WithClock(h.clock.Now),
		Logger:  logger,
		Metrics: h.metrics,
		Now:     h.clock.Now,
	})
	require.NoError(t, err)
	binder, err := NewSessionBinder(SessionBinderOptions{
		Users:       h.users,
		Sessions:    h.sessions,
		IdleTimeout: time.Hour,
		MaxLifetime: 4 * time.Hour,
		Logger:      logger,
		Now:         h.clock.Now,
	})
	require.NoError(t, err)
	claims, err := oidc.NewClaimsExtractor(oidc.ClaimPaths{})
	require.NoError(t, err)

	h.svc, err = NewAuthService(AuthServiceOptions{
		Provider:           provider,
		Verifier:           h.verifier,
		Claims:             claims,
		States:             states,
		Binder:             binder,
		Sessions:           h.sessions,
		PostLogoutRedirect: "https://backoffice.example/auth/signed-out",
		Logger:             logger,
		Metrics:            h.metrics,
		Now:                h.clock.Now,
	})
	require.NoError(t, err)
	return h
}

func (h *authHarness) begin(t *testing.T) string {
	t.Helper()
	res, err := h.svc.BeginLogin(context.Background())
	require.NoError(t, err)
	return res.State
}

func (h *authHarness) deniedCount(reason string) float64 {
	return promtest.ToFloat64(h.metrics.Logins.WithLabelValues(metrics.OutcomeDenied, reason))
}

func TestNewAuthService_RequiresDependencies(t *testing.T) {
	_, err := NewAuthService(AuthServiceOptions{})
	assert.Error(t, err)
}

func TestAuthService_BeginLogin(t *testing.T) {
	h := newAuthHarness(t, nil)

	res, err := h.svc.BeginLogin(context.Background())
	require.NoError(t, err)
	assert.Contains(t, res.AuthURL, "https://idp.example/authorize?response_type=code&state=")
	assert.Contains(t, res.AuthURL, res.State[:8])
	assert.Equal(t, domainauth.DefaultStateTTL, res.StateTTL)
	_, err = domainauth.ParseStateToken(res.State)
	assert.NoError(t, err)
}

func TestAuthService_CompleteLogin_Success(t *testing.T) {
	h := newAuthHarness(t, nil)
	ctx := context.Background()
	state := h.begin(t)

	res, err := h.svc.CompleteLogin(ctx, CompleteLoginInput{State: state, Code: "code-1", ClientIP: "10.0.0.7"})
	require.NoError(t, err)

	assert.Equal(t, domainauth.RoleOffice, res.Session.Role)
	assert.Equal(t, StateSourcePrimary, res.StateSource)
	assert.True(t, res.Session.Permissions.Has("shipments:read"))
	assert.Equal(t, "mock-access-code-1", res.Session.Tokens.AccessToken)
	assert.Equal(t, 1, h.idp.ExchangeCount())

	stored, err := h.sessions.Get(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Session.UserID, stored.UserID)

	assert.Contains(t, h.logs.String(), `"flow_state":"established"`)
	assert.NotContains(t, h.logs.String(), "mock-access-code-1", "provider tokens must not be logged")
	assert.InDelta(t, 1, promtest.ToFloat64(h.metrics.Logins.WithLabelValues(metrics.OutcomeEstablished, "")), 0)
}

func TestAuthService_CompleteLogin_ReplayedState(t *testing.T) {
	h := newAuthHarness(t, nil)
	ctx := context.Background()
	state := h.begin(t)

	_, err := h.svc.CompleteLogin(ctx, CompleteLoginInput{State: state, Code: "code-1"})
	require.NoError(t, err)

	_, err = h.svc.CompleteLogin(ctx, CompleteLoginInput{State: state, Code: "code-2", FallbackState: state})
	assert.ErrorIs(t, err, domainauth.ErrInvalidState)
	assert.Equal(t, 1, h.idp.ExchangeCount(), "replay must not reach the token endpoint")
	assert.InDelta(t, 1, h.deniedCount("invalid_state"), 0)
}

func TestAuthService_CompleteLogin_InvalidStateMakesNoProviderCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	// Any Exchange or UserInfo call fails the test.
	h := newAuthHarness(t, provider)

	_, err := h.svc.CompleteLogin(context.Background(), CompleteLoginInput{
		State:    "forged.1767268800",
		Code:     "code-1",
		ClientIP: "203.0.113.9",
	})
	require.ErrorIs(t, err, domainauth.ErrInvalidState)
	assert.Contains(t, h.logs.String(), `"security_event":"invalid_state"`)
	assert.Contains(t, h.logs.String(), `"client_ip":"203.0.113.9"`)
	assert.Contains(t, h.logs.String(), `"flow_state":"denied"`)
	assert.NotContains(t, h.logs.String(), "forged.1767268800", "only a prefix of the state is logged")
}

func TestAuthService_CompleteLogin_MissingCode(t *testing.T) {
	h := newAuthHarness(t, nil)
	state := h.begin(t)

	_, err := h.svc.CompleteLogin(context.Background(), CompleteLoginInput{State: state, ProviderError: "access_denied"})
	assert.ErrorIs(t, err, domainauth.ErrMissingCode)
	assert.Equal(t, 0, h.idp.ExchangeCount())
	assert.Contains(t, h.logs.String(), `"reason":"missing_code"`)
}

func TestAuthService_CompleteLogin_ExchangeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockIdentityProvider(ctrl)
	provider.EXPECT().AuthCodeURL(gomock.Any()).Return("https://idp.example/authorize")
	provider.EXPECT().Exchange(gomock.Any(), "code-1").
		Return(ports.TokenResponse{}, errors.New("dial tcp: i/o timeout")).Times(1)
	h := newAuthHarness(t, provider)
	state := h.begin(t)

	_, err := h.svc.CompleteLogin(context.Background(), CompleteLoginInput{State: state, Code: "code-1"})
	assert.ErrorIs(t, err, domainauth.ErrTokenExchangeFailed)
	assert.InDelta(t, 1, h.deniedCount("token_exchange_failed"), 0)
}

func TestAuthService_CompleteLogin_VerificationFailure(t *testing.T) {
	h := newAuthHarness(t, nil)
	h.verifier.Err = domainauth.NewVerificationError(domainauth.ErrBadSignature, errors.New("crypto/rsa: verification error"))
	state := h.begin(t)

	_, err := h.svc.CompleteLogin(context.Background(), CompleteLoginInput{State: state, Code: "code-1"})
	assert.ErrorIs(t, err, domainauth.ErrBadSignature)
	assert.ErrorIs(t, err, domainauth.ErrVerificationFailed)
	assert.Contains(t, h.logs.String(), `"reason":"bad_signature"`)
}

func TestAuthService_CompleteLogin_NoRoleClaim(t *testing.T) {
	h := newAuthHarness(t, nil)
	c := officeClaims()
	c.Role = domainauth.RoleClaim{}
	h.verifier.Claims = c
	state := h.begin(t)

	_, err := h.svc.CompleteLogin(context.Background(), CompleteLoginInput{State: state, Code: "code-1"})
	require.ErrorIs(t, err, domainauth.ErrNoRoleClaim)
	assert.Equal(t, 1, h.idp.UserInfos, "exactly one userinfo attempt")

	_, err = h.users.GetByEmail(context.Background(), c.Email)
	assert.Error(t, err, "no user record is written for a denied login")
}

func TestAuthService_CompleteLogin_RoleFromUserInfo(t *testing.T) {
	h := newAuthHarness(t, nil)
	c := officeClaims()
	c.Role = domainauth.RoleClaim{}
	h.verifier.Claims = c
	h.idp.UserInfoFunc = func(_ context.Context, accessToken string) (map[string]any, error) {
		assert.Equal(t, "mock-access-code-1", accessToken)
		return map[string]any{"app_access": map[string]any{"role": "client", "organization": "acme"}}, nil
	}
	state := h.begin(t)

	res, err := h.svc.CompleteLogin(context.Background(), CompleteLoginInput{State: state, Code: "code-1"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleClient, res.Session.Role)
	assert.Equal(t, "acme", res.Session.Organization)
}

func TestAuthService_CompleteLogin_UserInfoFailureDenies(t *testing.T) {
	h := newAuthHarness(t, nil)
	c := officeClaims()
	c.Role = domainauth.RoleClaim{}
	h.verifier.Claims = c
	h.idp.UserInfoFunc = func(context.Context, string) (map[string]any, error) {
		return nil, errors.New("502 bad gateway")
	}
	state := h.begin(t)

	_, err := h.svc.CompleteLogin(context.Background(), CompleteLoginInput{State: state, Code: "code-1"})
	assert.ErrorIs(t, err, domainauth.ErrNoRoleClaim)
	assert.Equal(t, 1, h.idp.UserInfos)
}

func TestAuthService_CompleteLogin_RoleRejections(t *testing.T) {
	tests := []struct {
		name string
		role domainauth.RoleClaim
	}{
		{name: "unknown role", role: domainauth.RoleClaim{Name: "superuser"}},
		{name: "client without organization", role: domainauth.RoleClaim{Name: "client"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAuthHarness(t, nil)
			c := officeClaims()
			c.Role = tt.role
			h.verifier.Claims = c
			state := h.begin(t)

			_, err := h.svc.CompleteLogin(context.Background(), CompleteLoginInput{State: state, Code: "code-1"})
			assert.ErrorIs(t, err, domainauth.ErrUnauthorized)
			assert.Equal(t, 0, h.idp.UserInfos, "a present but unusable role is not retried via userinfo")
		})
	}
}

func TestAuthService_GetSession_SlidingAndAbsoluteExpiry(t *testing.T) {
	h := newAuthHarness(t, nil)
	ctx := context.Background()
	state := h.begin(t)
	res, err := h.svc.CompleteLogin(ctx, CompleteLoginInput{State: state, Code: "code-1"})
	require.NoError(t, err)
	id := res.Session.ID

	// Activity every 50 minutes keeps the 1h idle timeout alive...
	for range 4 {
		h.clock.Advance(50 * time.Minute)
		sess, getErr := h.svc.GetSession(ctx, id)
		require.NoError(t, getErr)
		assert.False(t, sess.ExpiresAt.After(sess.AbsoluteExpiresAt))
	}

	// ...but never beyond the 4h absolute lifetime.
	h.clock.Advance(50 * time.Minute)
	_, err = h.svc.GetSession(ctx, id)
	assert.Error(t, err)
}

func TestAuthService_GetSession_IdleExpiry(t *testing.T) {
	h := newAuthHarness(t, nil)
	ctx := context.Background()
	state := h.begin(t)
	res, err := h.svc.CompleteLogin(ctx, CompleteLoginInput{State: state, Code: "code-1"})
	require.NoError(t, err)

	h.clock.Advance(61 * time.Minute)
	_, err = h.svc.GetSession(ctx, res.Session.ID)
	assert.Error(t, err)

	_, err = h.svc.GetSession(ctx, "")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestAuthService_GetSession_ExpiredRecordIsDeleted(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	h := newAuthHarness(t, nil)
	h.svc.sessions = store

	now := h.clock.Now()
	expired := domainauth.Session{
		ID:                "s-1",
		Role:              domainauth.RoleAdmin,
		ExpiresAt:         now.Add(-time.Minute),
		AbsoluteExpiresAt: now.Add(time.Hour),
	}
	store.EXPECT().Get(gomock.Any(), "s-1").Return(expired, nil)
	store.EXPECT().Delete(gomock.Any(), "s-1").Return(nil)

	_, err := h.svc.GetSession(context.Background(), "s-1")
	assert.ErrorIs(t, err, domainauth.ErrSessionExpired)
}

func TestAuthService_Logout(t *testing.T) {
	h := newAuthHarness(t, nil)
	ctx := context.Background()
	state := h.begin(t)
	res, err := h.svc.CompleteLogin(ctx, CompleteLoginInput{State: state, Code: "code-1"})
	require.NoError(t, err)

	out, err := h.svc.Logout(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t,
		"https://idp.example/logout?post_logout_redirect_uri=https%3A%2F%2Fbackoffice.example%2Fauth%2Fsigned-out",
		out.ProviderLogoutURL)

	_, err = h.sessions.Get(ctx, res.Session.ID)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)

	out, err = h.svc.Logout(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, out.ProviderLogoutURL)
}
