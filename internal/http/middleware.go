package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID keeps a well-formed inbound X-Request-ID or assigns a new one, echoes it on
// the response and stores it in the context for logging.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// RequestIDFromContext returns the id set by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Logging logs one line per request. Query strings are left out so authorization
// codes and state tokens never reach the log; probes log at debug.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			switch {
			case r.URL.Path == "/healthz" || r.URL.Path == "/metrics":
				level = slog.LevelDebug
			case ww.status >= http.StatusInternalServerError:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "http",
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *respWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *respWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Recover turns a handler panic into a 500. API callers get the usual JSON error body;
// the stack goes to the log only.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // recover() yields the sentinel itself
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "panic",
					slog.Any("error", rec),
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())))
				if strings.HasPrefix(r.URL.Path, "/api/") {
					WriteError(w, ErrorParams{
						Code: http.StatusInternalServerError, ErrCode: "internal_error", Err: errors.New("internal error"),
					})
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SessionLoader is the subset of the auth service the session middleware needs.
type SessionLoader interface {
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
}

// LoadSession resolves the session cookie and stores the session in the request context.
// Missing, unknown and expired sessions leave the context empty; an expired session's
// cookie is cleared. Role validity is not checked here.
func LoadSession(sessions SessionLoader, cookieDomain string, logger *slog.Logger) func(http.Handler) http.Handler {
	jar := cookieJar{domain: cookieDomain}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := cookieValue(r, SessionCookieName)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			sess, err := sessions.GetSession(r.Context(), id)
			switch {
			case err == nil:
				r = r.WithContext(SetSessionInContext(r.Context(), sess))
			case errors.Is(err, domainauth.ErrSessionExpired), errors.Is(err, domainauth.ErrSessionNotFound):
				jar.clear(w, r, SessionCookieName)
			default:
				logger.WarnContext(r.Context(), "session lookup failed", "error", err)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth returns a middleware that requires an authorized session in the context.
// For API requests: returns 401 JSON response if not authenticated.
// For browser requests: redirects to login page if not authenticated.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSessionFromContext(r.Context())
			if sess == nil || !sess.Authorized() {
				if IsBrowserRequest(r) {
					redirectToLogin(w, r)
					return
				}
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// browserRequestKey is an unexported context key type for browser request detection.
type browserRequestKey struct{}

// BrowserDetection returns a middleware that detects browser requests vs API requests.
// It sets a context value that can be used by downstream handlers to determine
// whether to return HTML or JSON responses.
func BrowserDetection() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), browserRequestKey{}, isBrowserRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsBrowserRequest returns true if the current request is from a browser.
func IsBrowserRequest(r *http.Request) bool {
	if isBrowser, ok := r.Context().Value(browserRequestKey{}).(bool); ok {
		return isBrowser
	}
	// Fallback to direct detection if middleware wasn't used
	return isBrowserRequest(r)
}

// isBrowserRequest determines if a request is from a browser based on:
// 1. Path prefix - API routes start with /api/
// 2. Accept header - browsers typically accept text/html.
func isBrowserRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/static/") {
		return false
	}
	accept := r.Header.Get("Accept")
	if accept == "" {
		// No Accept header, assume browser for non-API routes
		return true
	}
	return strings.Contains(accept, "text/html")
}

// wantsJSON reports whether the caller asked for a JSON answer instead of a redirect.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

// redirectToLogin redirects browser requests to the login page with the current URL as redirect_uri.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	redirectPath := safeRedirectPath(r.URL.RequestURI())
	if redirectPath == "" {
		redirectPath = "/"
	}
	http.Redirect(w, r, "/auth/login?redirect_uri="+url.QueryEscape(redirectPath), http.StatusSeeOther)
}
