package config

import (
	"reflect"
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("OAUTH_CLIENT_ID", "backoffice")
	t.Setenv("OAUTH_CLIENT_SECRET", "super-secret")
	t.Setenv("OAUTH_REDIRECT_URL", "https://backoffice.example/auth/callback")
	t.Setenv("OAUTH_ISSUER_URL", "https://login.example")
	t.Setenv("OAUTH_SCOPE", "openid email")
	t.Setenv("OAUTH_LOGOUT_URL", "https://login.example/logout")
	t.Setenv("OAUTH_POST_LOGOUT_REDIRECT_URL", "https://backoffice.example/auth/signed-out")
	t.Setenv("OAUTH_ROLE_CLAIM", "realm.role")
	t.Setenv("OAUTH_DIRECTORY_URL", "https://login.example/api/v1")
	t.Setenv("OAUTH_DIRECTORY_TOKEN", "dir-token")
	t.Setenv("AUTH_STATE_TTL", "5m")
	t.Setenv("AUTH_SESSION_IDLE_TIMEOUT", "2h")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	expected := AuthConfig{
		OAuth: OAuthConfig{
			ClientID:            "backoffice",
			ClientSecret:        "super-secret",
			RedirectURL:         "https://backoffice.example/auth/callback",
			Scope:               "openid email",
			IssuerURL:           "https://login.example",
			LogoutURL:           "https://login.example/logout",
			PostLogoutRedirect:  "https://backoffice.example/auth/signed-out",
			HTTPTimeout:         10 * time.Second,
			ClockSkew:           30 * time.Second,
			RoleClaim:           "realm.role",
			PermissionsClaim:    "app_access.permissions",
			OrganizationClaim:   "app_access.organization",
			DirectoryURL:        "https://login.example/api/v1",
			DirectoryToken:      "dir-token",
			DirectoryTimeout:    10 * time.Second,
			DirectoryRetryLimit: 2,
		},
		StateTTL:           5 * time.Minute,
		SessionIdleTimeout: 2 * time.Hour,
		SessionMaxLifetime: 24 * time.Hour,
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Postgres.Name != "backoffice" || cfg.Postgres.Port != 5432 {
		t.Errorf("unexpected postgres defaults: %+v", cfg.Postgres)
	}
	if cfg.Redis.KeyPrefix != "backoffice:" || cfg.Redis.UseCluster || cfg.Redis.UseSentinel {
		t.Errorf("unexpected redis defaults: %+v", cfg.Redis)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected :8080, got %q", cfg.HTTP.Addr)
	}
	if cfg.Auth.StateTTL != 10*time.Minute {
		t.Errorf("expected 10m state TTL, got %v", cfg.Auth.StateTTL)
	}
	if !cfg.Observability.MetricsEnabled || cfg.Observability.LogLevel != "info" {
		t.Errorf("unexpected observability defaults: %+v", cfg.Observability)
	}
	if cfg.Env != "production" || cfg.IsDev {
		t.Errorf("expected production defaults, got env=%q dev=%v", cfg.Env, cfg.IsDev)
	}
}

func TestAppConfig_DevModeFromAppEnv(t *testing.T) {
	for _, appEnv := range []string{"development", " DEV "} {
		var cfg AppConfig
		if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{"APP_ENV": appEnv}}); err != nil {
			t.Fatalf("parse config: %v", err)
		}
		cfg.Sanitize()
		if !cfg.IsDev {
			t.Errorf("APP_ENV=%q should enable dev mode", appEnv)
		}
	}
}

func TestAppConfig_ValidateHTTPAddr(t *testing.T) {
	cfg := AppConfig{Auth: validAuth(), HTTP: HTTPConfig{Addr: "8080"}}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "HTTP_ADDR") {
		t.Fatalf("expected HTTP_ADDR error, got %v", err)
	}
	cfg.HTTP.Addr = ":8080"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestAuthConfig_Sanitize(t *testing.T) {
	tests := []struct {
		name  string
		in    AuthConfig
		check func(t *testing.T, c AuthConfig)
	}{
		{
			name: "timeouts clamp to one second minimum",
			in:   AuthConfig{OAuth: OAuthConfig{HTTPTimeout: 10 * time.Millisecond, DirectoryTimeout: 0}},
			check: func(t *testing.T, c AuthConfig) {
				if c.OAuth.HTTPTimeout != time.Second || c.OAuth.DirectoryTimeout != time.Second {
					t.Errorf("got http=%v directory=%v", c.OAuth.HTTPTimeout, c.OAuth.DirectoryTimeout)
				}
			},
		},
		{
			name: "timeouts clamp to sixty second maximum",
			in:   AuthConfig{OAuth: OAuthConfig{HTTPTimeout: 5 * time.Minute, DirectoryTimeout: time.Hour}},
			check: func(t *testing.T, c AuthConfig) {
				if c.OAuth.HTTPTimeout != time.Minute || c.OAuth.DirectoryTimeout != time.Minute {
					t.Errorf("got http=%v directory=%v", c.OAuth.HTTPTimeout, c.OAuth.DirectoryTimeout)
				}
			},
		},
		{
			name: "state ttl lower bound",
			in:   AuthConfig{StateTTL: 5 * time.Second},
			check: func(t *testing.T, c AuthConfig) {
				if c.StateTTL != time.Minute {
					t.Errorf("expected 1m, got %v", c.StateTTL)
				}
			},
		},
		{
			name: "state ttl upper bound",
			in:   AuthConfig{StateTTL: 3 * time.Hour},
			check: func(t *testing.T, c AuthConfig) {
				if c.StateTTL != time.Hour {
					t.Errorf("expected 1h, got %v", c.StateTTL)
				}
			},
		},
		{
			name: "idle timeout never exceeds lifetime",
			in:   AuthConfig{SessionIdleTimeout: 48 * time.Hour, SessionMaxLifetime: 12 * time.Hour},
			check: func(t *testing.T, c AuthConfig) {
				if c.SessionIdleTimeout != 12*time.Hour {
					t.Errorf("expected 12h, got %v", c.SessionIdleTimeout)
				}
			},
		},
		{
			name: "negative skew and retries become zero",
			in:   AuthConfig{OAuth: OAuthConfig{ClockSkew: -time.Second, DirectoryRetryLimit: -3}},
			check: func(t *testing.T, c AuthConfig) {
				if c.OAuth.ClockSkew != 0 || c.OAuth.DirectoryRetryLimit != 0 {
					t.Errorf("got skew=%v retries=%d", c.OAuth.ClockSkew, c.OAuth.DirectoryRetryLimit)
				}
			},
		},
		{
			name: "scope whitespace collapses",
			in:   AuthConfig{OAuth: OAuthConfig{Scope: "  openid   email\tprofile "}},
			check: func(t *testing.T, c AuthConfig) {
				if c.OAuth.Scope != "openid email profile" {
					t.Errorf("got %q", c.OAuth.Scope)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.in
			c.Sanitize()
			tt.check(t, c)
		})
	}
}

func validAuth() AuthConfig {
	return AuthConfig{OAuth: OAuthConfig{
		ClientID:     "backoffice",
		ClientSecret: "secret",
		IssuerURL:    "https://login.example",
		RedirectURL:  "https://backoffice.example/auth/callback",
	}}
}

func TestAuthConfig_Validate(t *testing.T) {
	base := validAuth()
	if err := base.Validate(false); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *AuthConfig)
		isDev  bool
		want   string
	}{
		{"missing client id", func(c *AuthConfig) { c.OAuth.ClientID = "" }, false, "OAUTH_CLIENT_ID"},
		{"missing secret", func(c *AuthConfig) { c.OAuth.ClientSecret = "" }, false, "OAUTH_CLIENT_SECRET"},
		{"missing issuer", func(c *AuthConfig) { c.OAuth.IssuerURL = "" }, false, "OAUTH_ISSUER_URL is required"},
		{"relative redirect", func(c *AuthConfig) { c.OAuth.RedirectURL = "/auth/callback" }, false, "absolute URL"},
		{"http issuer in prod", func(c *AuthConfig) { c.OAuth.IssuerURL = "http://login.example" }, false, "must use https"},
		{"http directory in prod", func(c *AuthConfig) { c.OAuth.DirectoryURL = "http://login.example/api" }, false, "OAUTH_DIRECTORY_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validAuth()
			tt.mutate(&c)
			err := c.Validate(tt.isDev)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	c := validAuth()
	c.OAuth.IssuerURL = "http://localhost:9000"
	if err := c.Validate(true); err != nil {
		t.Fatalf("dev mode should allow http, got %v", err)
	}
}

func TestRedisConfig_Sanitize(t *testing.T) {
	c := RedisConfig{UseCluster: true, ClusterNodes: []string{" ", ""}, UseSentinel: true, SentinelNodes: []string{"s1:26379", " "}}
	c.Sanitize()
	if c.UseCluster {
		t.Error("cluster without nodes should be disabled")
	}
	if !c.UseSentinel || !reflect.DeepEqual(c.SentinelNodes, []string{"s1:26379"}) {
		t.Errorf("unexpected sentinel config: %+v", c)
	}

	c = RedisConfig{UseCluster: true, ClusterNodes: []string{"n1:7000"}, UseSentinel: true, DB: 3}
	c.Sanitize()
	if c.UseSentinel || c.DB != 0 {
		t.Errorf("cluster mode should win: %+v", c)
	}
}

func TestObservabilityConfig_Sanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DEBUG", "debug"},
		{" warn ", "warn"},
		{"verbose", "info"},
		{"", "info"},
	}
	for _, tt := range tests {
		c := ObservabilityConfig{LogLevel: tt.in}
		c.Sanitize()
		if c.LogLevel != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, c.LogLevel, tt.want)
		}
	}
	if (ObservabilityConfig{LogLevel: "error"}).SlogLevel().String() != "ERROR" {
		t.Error("expected ERROR level")
	}
}
