package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/observability/metrics"
	"github.com/harborline/backoffice/internal/ports"
	"github.com/harborline/backoffice/internal/util"
)

// touchGranularity is the smallest expiry extension worth writing back to the store.
const touchGranularity = time.Minute

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.IdentityProvider
	Verifier ports.TokenVerifier
	Claims   ports.ClaimsExtractor
	States   *StateTokenService
	Binder   *SessionBinder
	Sessions ports.SessionStore
	// PostLogoutRedirect is handed to the provider end-session endpoint.
	PostLogoutRedirect string
	Logger             *slog.Logger     // Optional: structured logger
	Metrics            *metrics.Metrics // Optional
	Now                func() time.Time // Optional: clock override for tests
}

// AuthService drives the browser login flow: state issue, callback validation, code exchange,
// token verification and session binding.
type AuthService struct {
	provider           ports.IdentityProvider
	verifier           ports.TokenVerifier
	claims             ports.ClaimsExtractor
	states             *StateTokenService
	binder             *SessionBinder
	sessions           ports.SessionStore
	postLogoutRedirect string
	logger             *slog.Logger
	metrics            *metrics.Metrics
	now                func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	switch {
	case opts.Provider == nil:
		return nil, errors.New("IdentityProvider is required")
	case opts.Verifier == nil:
		return nil, errors.New("TokenVerifier is required")
	case opts.Claims == nil:
		return nil, errors.New("ClaimsExtractor is required")
	case opts.States == nil:
		return nil, errors.New("StateTokenService is required")
	case opts.Binder == nil:
		return nil, errors.New("SessionBinder is required")
	case opts.Sessions == nil:
		return nil, errors.New("SessionStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		provider:           opts.Provider,
		verifier:           opts.Verifier,
		claims:             opts.Claims,
		states:             opts.States,
		binder:             opts.Binder,
		sessions:           opts.Sessions,
		postLogoutRedirect: opts.PostLogoutRedirect,
		logger:             logger.With("component", "auth"),
		metrics:            opts.Metrics,
		now:                now,
	}, nil
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL  string
	State    string
	StateTTL time.Duration
}

// BeginLogin issues a state token and returns the provider authorization URL.
func (s *AuthService) BeginLogin(ctx context.Context) (*BeginLoginResult, error) {
	var flow domainauth.LoginFlow
	tok, err := s.states.Issue(ctx)
	if err != nil {
		return nil, fmt.Errorf("issue state: %w", err)
	}
	if advErr := flow.Advance(domainauth.FlowAwaitingCallback); advErr != nil {
		return nil, advErr
	}
	s.logger.DebugContext(ctx, "login started",
		"flow_state", string(flow.State()),
		"state_prefix", util.TokenPrefix(tok.String()))
	return &BeginLoginResult{
		AuthURL:  s.provider.AuthCodeURL(tok.String()),
		State:    tok.String(),
		StateTTL: s.states.TTL(),
	}, nil
}

// CompleteLoginInput groups the callback parameters.
type CompleteLoginInput struct {
	State string
	Code  string
	// FallbackState is the browser-held copy of the state token.
	FallbackState string
	// ProviderError is the provider's error parameter, if it sent one.
	ProviderError string
	ClientIP      string
}

// CompleteLoginResult contains the result of completing a login flow.
type CompleteLoginResult struct {
	Session     domainauth.Session
	StateSource StateSource
}

// CompleteLogin validates the state before any network call, then exchanges the code,
// verifies the identity token and binds a session. Every outcome is logged exactly once.
func (s *AuthService) CompleteLogin(ctx context.Context, in CompleteLoginInput) (*CompleteLoginResult, error) {
	flow := domainauth.ResumeFlow(domainauth.FlowAwaitingCallback)
	log := s.logger.With("client_ip", in.ClientIP, "state_prefix", util.TokenPrefix(in.State))

	validation, err := s.states.ValidateAndConsume(ctx, in.State, 0, in.FallbackState)
	if err != nil {
		return nil, s.deny(ctx, log, &flow, err, "security_event", "invalid_state")
	}
	if in.Code == "" {
		return nil, s.deny(ctx, log, &flow, domainauth.ErrMissingCode, "provider_error", in.ProviderError)
	}

	if advErr := flow.Advance(domainauth.FlowExchanging); advErr != nil {
		return nil, s.deny(ctx, log, &flow, advErr)
	}
	tokens, err := s.provider.Exchange(ctx, in.Code)
	if err != nil {
		if !errors.Is(err, domainauth.ErrTokenExchangeFailed) {
			err = fmt.Errorf("%w: %w", domainauth.ErrTokenExchangeFailed, err)
		}
		return nil, s.deny(ctx, log, &flow, err)
	}

	claims, err := s.verifier.Verify(ctx, tokens.IDToken)
	if err != nil {
		return nil, s.deny(ctx, log, &flow, err)
	}
	if !claims.HasRole() {
		claims.Role = s.roleFromUserInfo(ctx, log, tokens.AccessToken)
	}

	sess, err := s.binder.Bind(ctx, claims, domainauth.ProviderTokens{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Expiry:       tokens.Expiry,
	})
	if err != nil {
		return nil, s.deny(ctx, log, &flow, err, "email", claims.Email)
	}

	if advErr := flow.Advance(domainauth.FlowEstablished); advErr != nil {
		return nil, s.deny(ctx, log, &flow, advErr)
	}
	log.InfoContext(ctx, "login established",
		"flow_state", string(flow.State()),
		"state_source", string(validation.Source),
		"user_id", sess.UserID,
		"role", string(sess.Role),
		"organization", sess.Organization)
	s.metrics.LoginEstablished()
	return &CompleteLoginResult{Session: sess, StateSource: validation.Source}, nil
}

// roleFromUserInfo is the single bounded userinfo attempt made when the identity token
// carries no role claim. Failures leave the role empty.
func (s *AuthService) roleFromUserInfo(ctx context.Context, log *slog.Logger, accessToken string) domainauth.RoleClaim {
	if accessToken == "" {
		return domainauth.RoleClaim{}
	}
	info, err := s.provider.UserInfo(ctx, accessToken)
	if err != nil {
		log.WarnContext(ctx, "userinfo fallback failed", "error", err)
		return domainauth.RoleClaim{}
	}
	rc, err := s.claims.RoleClaim(info)
	if err != nil {
		log.WarnContext(ctx, "userinfo role claim unreadable", "error", err)
		return domainauth.RoleClaim{}
	}
	return rc
}

func (s *AuthService) deny(
	ctx context.Context,
	log *slog.Logger,
	flow *domainauth.LoginFlow,
	reason error,
	attrs ...any,
) error {
	if denyErr := flow.Deny(reason); denyErr != nil {
		log.ErrorContext(ctx, "login flow transition failed", "error", denyErr)
	}
	code := domainauth.DenialReason(reason)
	args := append([]any{
		"flow_state", string(flow.State()),
		"reason", code,
		"error", reason,
	}, attrs...)
	log.WarnContext(ctx, "login denied", args...)
	s.metrics.LoginDenied(code)
	return reason
}

// GetSession loads a session and slides its idle expiry. A session past either expiry
// is deleted and reported as ErrSessionExpired.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, domainauth.ErrSessionNotFound
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	now := s.now()
	if sess.Expired(now) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(domainauth.ErrSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, domainauth.ErrSessionExpired
	}

	touched := sess.Touch(now, s.binder.IdleTimeout())
	if touched.ExpiresAt.Sub(sess.ExpiresAt) >= touchGranularity {
		if saveErr := s.sessions.Save(ctx, touched); saveErr != nil {
			s.logger.WarnContext(ctx, "failed to extend session", "error", saveErr)
			return &sess, nil
		}
		return &touched, nil
	}
	return &sess, nil
}

// LogoutResult tells the caller where to send the browser after logout.
type LogoutResult struct {
	// ProviderLogoutURL is empty when the provider has no end-session endpoint.
	ProviderLogoutURL string
}

// Logout removes the server session and builds the provider logout URL locally.
func (s *AuthService) Logout(ctx context.Context, sessionID string) (*LogoutResult, error) {
	res := &LogoutResult{ProviderLogoutURL: s.provider.EndSessionURL(s.postLogoutRedirect)}
	if sessionID == "" {
		return res, nil // Nothing to logout
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return res, fmt.Errorf("delete session: %w", err)
	}
	s.logger.DebugContext(ctx, "session ended")
	return res, nil
}
