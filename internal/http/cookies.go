package httpx

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Cookie names used by the login flow.
const (
	SessionCookieName       = "session_id"
	StateCookieName         = "oauth_state"
	PostLoginRedirectCookie = "post_login_redirect"
)

// cookieJar writes the service's cookies with one consistent attribute set:
// HTTP-only, SameSite=Lax, Secure on TLS or forwarded https.
type cookieJar struct {
	domain string
}

func (c cookieJar) set(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clear expires a cookie, mirroring the attributes it was set with so browsers drop it.
func (c cookieJar) clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || isForwardedHTTPS(r)
}

// isForwardedHTTPS checks if the request was forwarded over HTTPS.
// Handles comma-separated values in X-Forwarded-Proto header.
func isForwardedHTTPS(r *http.Request) bool {
	for proto := range strings.SplitSeq(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return ""
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return ""
	}
	// "//evil.example" and "/\evil.example" are treated as hosts by browsers.
	if strings.HasPrefix(candidate, "//") || strings.HasPrefix(candidate, "/\\") {
		return ""
	}
	return candidate
}

// clientIP returns the first X-Forwarded-For hop, falling back to the peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
