package oidc

// Package oidc provides the OAuth2/OIDC adapters for the back-office: the identity provider
// client, the identity token verifier and the role claim extractor.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/ports"
	"golang.org/x/oauth2"
)

// DefaultHTTPTimeout bounds every outbound call to the identity provider.
const DefaultHTTPTimeout = 10 * time.Second

// Provider implements ports.IdentityProvider using OIDC discovery and OAuth2.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client
	timeout    time.Duration
	logoutURL  string

	oidcProvider *gooidc.Provider
	meta         discoveryExtras
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	IssuerURL    string
	// LogoutURL overrides the discovered end_session_endpoint when set.
	LogoutURL   string
	HTTPTimeout time.Duration
	HTTPClient  *http.Client // Optional, defaults to a client with HTTPTimeout
}

// DiscoveryDocument represents the subset of the OIDC discovery document we read.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
	EndSessionEndpoint    string `json:"end_session_endpoint,omitempty"`
}

type discoveryExtras struct {
	JwksURI            string `json:"jwks_uri"`
	EndSessionEndpoint string `json:"end_session_endpoint"`
}

// NewProvider runs discovery against cfg.IssuerURL and builds the OAuth2 client.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if cfg.IssuerURL == "" {
		return nil, errors.New("issuer URL is required")
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	issuer := strings.TrimSuffix(cfg.IssuerURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	op, err := gooidc.NewProvider(gooidc.ClientContext(dctx, httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	var extras discoveryExtras
	if claimsErr := op.Claims(&extras); claimsErr != nil {
		return nil, fmt.Errorf("decode discovery document: %w", claimsErr)
	}
	if extras.JwksURI == "" {
		return nil, errors.New("discovery document has no jwks_uri")
	}

	scopes := strings.Fields(cfg.Scope)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "email", "profile"}
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
		httpClient:   httpClient,
		timeout:      timeout,
		logoutURL:    cfg.LogoutURL,
		oidcProvider: op,
		meta:         extras,
	}, nil
}

var _ ports.IdentityProvider = (*Provider)(nil)

// Issuer returns the discovered issuer identifier.
func (p *Provider) Issuer() string {
	var doc DiscoveryDocument
	if err := p.oidcProvider.Claims(&doc); err != nil {
		return ""
	}
	return doc.Issuer
}

// KeySet returns a JWKS-backed key set for the discovered jwks_uri. Keys are cached by kid
// and refetched when a token names an unknown kid.
func (p *Provider) KeySet(ctx context.Context) gooidc.KeySet {
	return gooidc.NewRemoteKeySet(gooidc.ClientContext(ctx, p.httpClient), p.meta.JwksURI)
}

// AuthCodeURL builds the authorization redirect: client_id, redirect_uri, response_type=code,
// scope and state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades code for tokens in a single bounded attempt.
// Provider response bodies are not carried in the returned error.
func (p *Provider) Exchange(ctx context.Context, code string) (ports.TokenResponse, error) {
	if code == "" {
		return ports.TokenResponse{}, domainauth.ErrMissingCode
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return ports.TokenResponse{}, fmt.Errorf("%w: %s", domainauth.ErrTokenExchangeFailed, describeExchangeError(err))
	}

	rawID, _ := tok.Extra("id_token").(string)
	if rawID == "" {
		return ports.TokenResponse{}, fmt.Errorf("%w: missing id_token in token response", domainauth.ErrTokenExchangeFailed)
	}

	return ports.TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IDToken:      rawID,
		Expiry:       tok.Expiry,
	}, nil
}

// describeExchangeError summarizes err without the provider's response body.
func describeExchangeError(err error) string {
	var re *oauth2.RetrieveError
	switch {
	case errors.As(err, &re) && re.Response != nil:
		if re.ErrorCode != "" {
			return fmt.Sprintf("token endpoint status %d (%s)", re.Response.StatusCode, re.ErrorCode)
		}
		return fmt.Sprintf("token endpoint status %d", re.Response.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "token endpoint timed out"
	default:
		return "token endpoint unreachable"
	}
}

// UserInfo fetches the userinfo claims in one bounded attempt.
func (p *Provider) UserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	if accessToken == "" {
		return nil, errors.New("access token is required")
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = gooidc.ClientContext(ctx, p.httpClient)

	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	claims := map[string]any{}
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return nil, fmt.Errorf("decode user info: %w", claimsErr)
	}
	return claims, nil
}

// EndSessionURL builds the provider logout URL locally. Returns "" when neither a configured
// logout URL nor a discovered end_session_endpoint exists.
func (p *Provider) EndSessionURL(postLogoutRedirect string) string {
	base := p.logoutURL
	if base == "" {
		base = p.meta.EndSessionEndpoint
	}
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("client_id", p.config.ClientID)
	if postLogoutRedirect != "" {
		q.Set("post_logout_redirect_uri", postLogoutRedirect)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
