package httpx

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const (
	// DefaultCSRFCookieName is the default name for the CSRF cookie.
	DefaultCSRFCookieName = "csrf_token"
	// DefaultCSRFHeaderName is the default name for the CSRF header (canonical form).
	DefaultCSRFHeaderName = "X-Csrf-Token"

	csrfTokenBytes = 32
	csrfMaxAge     = 12 * 3600
)

// CSRFConfig holds configuration for CSRF protection middleware.
type CSRFConfig struct {
	CookieName   string
	HeaderName   string
	CookieDomain string
	// Protected selects the requests that must carry the token. Default: every /api/ path.
	Protected func(r *http.Request) bool
}

// CSRFProtection guards cookie-authenticated API writes with the double-submit cookie
// pattern: a readable csrf_token cookie whose value must be echoed in X-Csrf-Token on
// POST, PUT, PATCH and DELETE.
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCSRFCookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultCSRFHeaderName
	}
	if cfg.Protected == nil {
		cfg.Protected = func(r *http.Request) bool { return strings.HasPrefix(r.URL.Path, "/api/") }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookieValue(r, cfg.CookieName)
			if token == "" {
				fresh, err := generateCSRFToken()
				if err != nil {
					http.Error(w, "unable to generate CSRF token", http.StatusInternalServerError)
					return
				}
				token = fresh
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					Domain:   cfg.CookieDomain,
					HttpOnly: false, // read by the browser to echo in the header
					Secure:   isSecureRequest(r),
					SameSite: http.SameSiteStrictMode,
					MaxAge:   csrfMaxAge,
				})
				// A request that arrived without the cookie cannot carry a matching header.
				token = ""
			}

			if requiresCSRFValidation(r.Method) && cfg.Protected(r) && !validCSRFHeader(r, cfg.HeaderName, token) {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "csrf_failed",
					Err:     fmt.Errorf("missing or invalid %s header", cfg.HeaderName),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requiresCSRFValidation returns true if the HTTP method requires CSRF validation.
// Safe methods (GET, HEAD, OPTIONS, TRACE) are exempt.
func requiresCSRFValidation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

// generateCSRFToken fails closed: no predictable fallback token.
func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf token generation failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func validCSRFHeader(r *http.Request, header, cookieToken string) bool {
	got := r.Header.Get(header)
	if cookieToken == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(cookieToken)) == 1
}
