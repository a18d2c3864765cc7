package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Guardrails applied by AuthConfig.Sanitize.
const (
	minNetworkTimeout = time.Second
	maxNetworkTimeout = 60 * time.Second
	minStateTTL       = 60 * time.Second
	maxStateTTL       = time.Hour
	maxClockSkew      = 5 * time.Minute
)

// OAuthConfig contains OAuth/OIDC client configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"             envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"                    envDefault:"openid email profile"`
	// IssuerURL is the provider issuer; its discovery document supplies the endpoints.
	IssuerURL string `env:"ISSUER_URL"`
	// LogoutURL overrides the discovered end_session_endpoint.
	LogoutURL          string        `env:"LOGOUT_URL"`
	PostLogoutRedirect string        `env:"POST_LOGOUT_REDIRECT_URL"`
	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT"             envDefault:"10s"`
	ClockSkew          time.Duration `env:"CLOCK_SKEW"               envDefault:"30s"`

	// JMESPath expressions locating the application role inside token claims.
	RoleClaim         string `env:"ROLE_CLAIM"         envDefault:"app_access.role"`
	PermissionsClaim  string `env:"PERMISSIONS_CLAIM"  envDefault:"app_access.permissions"`
	OrganizationClaim string `env:"ORGANIZATION_CLAIM" envDefault:"app_access.organization"`

	// Directory is the provider's user directory endpoint used for role provisioning.
	DirectoryURL        string        `env:"DIRECTORY_URL"`
	DirectoryToken      string        `env:"DIRECTORY_TOKEN"`
	DirectoryTimeout    time.Duration `env:"DIRECTORY_TIMEOUT"     envDefault:"10s"`
	DirectoryRetryLimit int           `env:"DIRECTORY_RETRY_LIMIT" envDefault:"2"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	StateTTL           time.Duration `env:"AUTH_STATE_TTL"            envDefault:"10m"`
	SessionIdleTimeout time.Duration `env:"AUTH_SESSION_IDLE_TIMEOUT" envDefault:"8h"`
	SessionMaxLifetime time.Duration `env:"AUTH_SESSION_MAX_LIFETIME" envDefault:"24h"`
}

// Sanitize trims values and clamps durations into safe ranges.
func (c *AuthConfig) Sanitize() {
	o := &c.OAuth
	o.ClientID = strings.TrimSpace(o.ClientID)
	o.RedirectURL = strings.TrimSpace(o.RedirectURL)
	o.IssuerURL = strings.TrimSpace(o.IssuerURL)
	o.LogoutURL = strings.TrimSpace(o.LogoutURL)
	o.PostLogoutRedirect = strings.TrimSpace(o.PostLogoutRedirect)
	o.DirectoryURL = strings.TrimSpace(o.DirectoryURL)
	o.Scope = strings.Join(strings.Fields(o.Scope), " ")

	o.HTTPTimeout = clamp(o.HTTPTimeout, minNetworkTimeout, maxNetworkTimeout)
	o.DirectoryTimeout = clamp(o.DirectoryTimeout, minNetworkTimeout, maxNetworkTimeout)
	o.ClockSkew = clamp(o.ClockSkew, 0, maxClockSkew)
	o.DirectoryRetryLimit = max(o.DirectoryRetryLimit, 0)

	c.StateTTL = clamp(c.StateTTL, minStateTTL, maxStateTTL)
	if c.SessionMaxLifetime <= 0 {
		c.SessionMaxLifetime = 24 * time.Hour
	}
	if c.SessionIdleTimeout <= 0 {
		c.SessionIdleTimeout = 8 * time.Hour
	}
	c.SessionIdleTimeout = min(c.SessionIdleTimeout, c.SessionMaxLifetime)
}

// Validate reports missing or unsafe OAuth settings. Plain-http URLs are only allowed in dev.
func (c *AuthConfig) Validate(isDev bool) error {
	o := c.OAuth
	var errs []error
	if o.ClientID == "" {
		errs = append(errs, errors.New("OAUTH_CLIENT_ID is required"))
	}
	if o.ClientSecret == "" {
		errs = append(errs, errors.New("OAUTH_CLIENT_SECRET is required"))
	}
	if err := validateURL("OAUTH_ISSUER_URL", o.IssuerURL, isDev); err != nil {
		errs = append(errs, err)
	}
	if err := validateURL("OAUTH_REDIRECT_URL", o.RedirectURL, isDev); err != nil {
		errs = append(errs, err)
	}
	if o.DirectoryURL != "" {
		if err := validateURL("OAUTH_DIRECTORY_URL", o.DirectoryURL, isDev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func validateURL(name, raw string, allowHTTP bool) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", name)
	}
	switch {
	case u.Scheme == "https":
		return nil
	case u.Scheme == "http" && allowHTTP:
		return nil
	default:
		return fmt.Errorf("%s must use https", name)
	}
}

func clamp(d, lo, hi time.Duration) time.Duration {
	return min(max(d, lo), hi)
}
