package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) (*service.LogoutResult, error)
}

var _ AuthServiceInterface = (*service.AuthService)(nil)

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	Logger       *slog.Logger
	Now          func() time.Time // Optional: clock override for tests
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *AuthHandlers) cookies() cookieJar { return cookieJar{domain: h.CookieDomain} }

// Login handles the login initiation endpoint.
// GET /auth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if sess := h.currentSession(r); sess != nil {
		http.Redirect(w, r, LandingPath(sess), http.StatusFound)
		return
	}

	result, err := h.Svc.BeginLogin(r.Context())
	if err != nil {
		h.logger().ErrorContext(r.Context(), "begin login failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "login_unavailable",
			Err:     errors.New("sign-in is temporarily unavailable"),
		})
		return
	}

	jar := h.cookies()
	maxAge := int(result.StateTTL.Seconds())
	jar.set(w, r, StateCookieName, result.State, maxAge)
	if redirect := safeRedirectPath(r.URL.Query().Get("redirect_uri")); redirect != "" {
		jar.set(w, r, PostLoginRedirectCookie, redirect, maxAge)
	}

	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback handles the OAuth callback endpoint.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jar := h.cookies()
	fallback := cookieValue(r, StateCookieName)
	// The fallback copy is single-use as well.
	jar.clear(w, r, StateCookieName)

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		State:         q.Get("state"),
		Code:          q.Get("code"),
		FallbackState: fallback,
		ProviderError: q.Get("error"),
		ClientIP:      clientIP(r),
	})
	if err != nil {
		jar.clear(w, r, PostLoginRedirectCookie)
		writeLoginDenied(w, r, err)
		return
	}

	sess := result.Session
	jar.set(w, r, SessionCookieName, sess.ID, int(sess.AbsoluteExpiresAt.Sub(h.now()).Seconds()))

	target := safeRedirectPath(cookieValue(r, PostLoginRedirectCookie))
	jar.clear(w, r, PostLoginRedirectCookie)
	if target == "" || !clientMayVisit(&sess, r.Method, target) {
		target = LandingPath(&sess)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// writeLoginDenied answers a failed callback with a generic message. State and code
// problems are "access denied"; everything after them is "login failed".
func writeLoginDenied(w http.ResponseWriter, r *http.Request, err error) {
	errCode, msg := "login_failed", "login failed"
	if errors.Is(err, domainauth.ErrInvalidState) || errors.Is(err, domainauth.ErrMissingCode) {
		errCode, msg = "access_denied", "access denied"
	}
	if IsBrowserRequest(r) {
		renderPage(w, http.StatusForbidden, pageDenied, pageData{Message: msg})
		return
	}
	WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: errCode, Err: errors.New(msg)})
}

// Logout handles the logout endpoint.
// GET or POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	result, err := h.Svc.Logout(r.Context(), cookieValue(r, SessionCookieName))
	if err != nil {
		h.logger().WarnContext(r.Context(), "logout failed", "error", err)
	}
	h.cookies().clear(w, r, SessionCookieName)

	target := "/auth/signed-out"
	if result != nil && result.ProviderLogoutURL != "" {
		target = result.ProviderLogoutURL
	}
	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out", "redirect_to": target})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type statusResponse struct {
	Authenticated bool       `json:"authenticated"`
	Email         string     `json:"email,omitempty"`
	Role          string     `json:"role,omitempty"`
	Organization  string     `json:"organization,omitempty"`
	Permissions   []string   `json:"permissions,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// Status returns the current authentication status. Provider tokens are never included.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	if sess == nil {
		sess = h.currentSession(r)
	}
	if sess == nil || !sess.Authorized() {
		if cookieValue(r, SessionCookieName) != "" {
			h.cookies().clear(w, r, SessionCookieName)
		}
		WriteJSON(w, http.StatusOK, statusResponse{})
		return
	}
	expires := sess.ExpiresAt
	WriteJSON(w, http.StatusOK, statusResponse{
		Authenticated: true,
		Email:         sess.Email,
		Role:          string(sess.Role),
		Organization:  sess.Organization,
		Permissions:   sess.Permissions.Slice(),
		ExpiresAt:     &expires,
	})
}

// SignedOut renders the post-logout page.
func (h *AuthHandlers) SignedOut(w http.ResponseWriter, _ *http.Request) {
	renderPage(w, http.StatusOK, pageSignedOut, pageData{})
}

// Denied renders the page for sessions without a usable role.
func (h *AuthHandlers) Denied(w http.ResponseWriter, _ *http.Request) {
	renderPage(w, http.StatusForbidden, pageDenied, pageData{Message: "access denied"})
}

// currentSession returns the authorized session named by the cookie, or nil.
func (h *AuthHandlers) currentSession(r *http.Request) *domainauth.Session {
	id := cookieValue(r, SessionCookieName)
	if id == "" {
		return nil
	}
	sess, err := h.Svc.GetSession(r.Context(), id)
	if err != nil || !sess.Authorized() {
		return nil
	}
	return sess
}
