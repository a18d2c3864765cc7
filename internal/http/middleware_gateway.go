package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/observability/metrics"
)

// Gateway rejection actions, used as the metrics "action" label.
const (
	gatewayActionRedirect = "redirect"
	gatewayActionForbid   = "forbid"
	gatewayActionDeny     = "deny"
)

const clientDashboard = "/client/dashboard"

// publicPaths are served without a session.
//
//nolint:gochecknoglobals // static read-only allow-list
var publicPaths = map[string]bool{
	"/auth/login":      true,
	"/auth/callback":   true,
	"/auth/signed-out": true,
	"/auth/denied":     true,
	"/healthz":         true,
	"/metrics":         true,
}

// IsPublicPath reports whether path is reachable without authentication.
func IsPublicPath(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, "/static/")
}

// GatewayOptions configures the access control gateway.
type GatewayOptions struct {
	CookieDomain string
	Logger       *slog.Logger     // Optional: structured logger
	Metrics      *metrics.Metrics // Optional
}

// Gateway confines sessions to what their role may reach before any handler runs.
// It expects LoadSession to have run. Requests without a session pass through so the
// handler-level RequireAuth produces the 401 or login redirect.
func Gateway(opts GatewayOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gateway")
	jar := cookieJar{domain: opts.CookieDomain}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSessionFromContext(r.Context())
			if sess == nil || IsPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if !sess.Authorized() {
				logger.WarnContext(r.Context(), "session without usable role rejected",
					"user_id", sess.UserID,
					"role", string(sess.Role),
					"path", r.URL.Path)
				opts.Metrics.GatewayRejected(roleLabel(sess.Role), gatewayActionDeny)
				jar.clear(w, r, SessionCookieName)
				if IsBrowserRequest(r) {
					http.Redirect(w, r, "/auth/denied", http.StatusSeeOther)
					return
				}
				writeForbidden(w)
				return
			}

			if clientMayVisit(sess, r.Method, r.URL.RequestURI()) {
				next.ServeHTTP(w, r)
				return
			}

			logger.DebugContext(r.Context(), "client request outside allow-list",
				"user_id", sess.UserID,
				"organization", sess.Organization,
				"method", r.Method,
				"path", r.URL.Path)
			if IsBrowserRequest(r) {
				opts.Metrics.GatewayRejected(string(sess.Role), gatewayActionRedirect)
				http.Redirect(w, r, LandingPath(sess), http.StatusSeeOther)
				return
			}
			opts.Metrics.GatewayRejected(string(sess.Role), gatewayActionForbid)
			writeForbidden(w)
		})
	}
}

// clientMayVisit reports whether sess may request target. Admin and Office sessions may
// go anywhere; Client sessions only reach their own dashboard and read-only shipment APIs.
func clientMayVisit(sess *domainauth.Session, method, target string) bool {
	if sess.Role.Unrestricted() {
		return true
	}
	if sess.Role != domainauth.RoleClient {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	read := method == http.MethodGet || method == http.MethodHead

	switch path := u.Path; {
	case path == "/auth/logout":
		return read || method == http.MethodPost
	case path == "/", path == "/auth/status":
		return read
	case path == clientDashboard:
		return read && u.Query().Get("org") == sess.Organization
	case path == "/api/shipments":
		return method == http.MethodGet
	case strings.HasPrefix(path, "/api/shipments/"):
		id := strings.TrimPrefix(path, "/api/shipments/")
		return method == http.MethodGet && id != "" && !strings.Contains(id, "/")
	default:
		return false
	}
}

func clientDashboardPath(org string) string {
	return clientDashboard + "?org=" + url.QueryEscape(org)
}

func roleLabel(r domainauth.Role) string {
	if r.Valid() {
		return string(r)
	}
	return "invalid"
}

func writeForbidden(w http.ResponseWriter) {
	WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: errors.New("forbidden")})
}
