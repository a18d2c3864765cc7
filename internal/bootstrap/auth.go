package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harborline/backoffice/config"
	"github.com/harborline/backoffice/internal/adapters/directory"
	"github.com/harborline/backoffice/internal/adapters/oidc"
	"github.com/harborline/backoffice/internal/ports"
)

// Identity groups the provider-facing adapters used by the login flow.
type Identity struct {
	Provider *oidc.Provider
	Verifier *oidc.Verifier
	Claims   *oidc.ClaimsExtractor
}

// IdentityConfig contains configuration for the identity adapters.
type IdentityConfig struct {
	Auth   config.AuthConfig
	Logger *slog.Logger
}

// BuildIdentity discovers the provider and builds the verifier and claim extractor.
func BuildIdentity(ctx context.Context, cfg IdentityConfig) (*Identity, error) {
	oauth := cfg.Auth.OAuth
	if oauth.IssuerURL == "" || oauth.ClientID == "" || oauth.ClientSecret == "" {
		return nil, errors.New("oauth issuer, client ID and client secret are required")
	}

	claims, err := oidc.NewClaimsExtractor(oidc.ClaimPaths{
		Role:         oauth.RoleClaim,
		Permissions:  oauth.PermissionsClaim,
		Organization: oauth.OrganizationClaim,
	})
	if err != nil {
		return nil, fmt.Errorf("build claims extractor: %w", err)
	}

	prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  oauth.RedirectURL,
		Scope:        oauth.Scope,
		IssuerURL:    oauth.IssuerURL,
		LogoutURL:    oauth.LogoutURL,
		HTTPTimeout:  oauth.HTTPTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("discover identity provider: %w", err)
	}

	verifier, err := oidc.NewVerifier(oidc.VerifierConfig{
		Issuer:    prov.Issuer(),
		ClientID:  oauth.ClientID,
		KeySet:    prov.KeySet(ctx),
		ClockSkew: oauth.ClockSkew,
		Claims:    claims,
	})
	if err != nil {
		return nil, fmt.Errorf("build token verifier: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "identity provider ready",
			"issuer", prov.Issuer(),
			"role_claim", claims.Paths().Role,
		)
	}
	return &Identity{Provider: prov, Verifier: verifier, Claims: claims}, nil
}

// BuildDirectory returns the role directory client, or a stub that fails every
// assignment when no directory URL is configured.
//
//nolint:ireturn // the concrete type depends on configuration.
func BuildDirectory(cfg config.OAuthConfig, logger *slog.Logger) ports.RoleDirectory {
	dir, err := directory.NewHTTPDirectory(directory.Config{
		URL:        cfg.DirectoryURL,
		Token:      cfg.DirectoryToken,
		Timeout:    cfg.DirectoryTimeout,
		RetryLimit: cfg.DirectoryRetryLimit,
	})
	if err != nil {
		if logger != nil {
			logger.Warn("role directory not configured; role provisioning disabled", "error", err)
		}
		return directory.Unconfigured{}
	}
	return dir
}
