package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	jose "github.com/go-jose/go-jose/v4"
	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/ports"
)

// DefaultClockSkew is the tolerance applied to the exp claim.
const DefaultClockSkew = 30 * time.Second

var allowedAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384,
	jose.PS256,
}

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	Issuer    string
	ClientID  string
	KeySet    gooidc.KeySet
	ClockSkew time.Duration
	Claims    *ClaimsExtractor
	Now       func() time.Time // Optional: clock override for tests
}

// Verifier checks identity tokens issued by the trusted provider.
// There is no switch to skip the signature check.
type Verifier struct {
	issuer   string
	clientID string
	keys     gooidc.KeySet
	skew     time.Duration
	claims   *ClaimsExtractor
	now      func() time.Time
}

var _ ports.TokenVerifier = (*Verifier)(nil)

// NewVerifier constructs a Verifier.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.KeySet == nil {
		return nil, errors.New("key set is required")
	}
	if cfg.Claims == nil {
		return nil, errNoExtractor
	}
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = DefaultClockSkew
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Verifier{
		issuer:   strings.TrimSuffix(cfg.Issuer, "/"),
		clientID: cfg.ClientID,
		keys:     cfg.KeySet,
		skew:     skew,
		claims:   cfg.Claims,
		now:      now,
	}, nil
}

type tokenClaims struct {
	Issuer        string   `json:"iss"`
	Subject       string   `json:"sub"`
	Audience      audience `json:"aud"`
	Expiry        *float64 `json:"exp"`
	IssuedAt      *float64 `json:"iat"`
	Email         string   `json:"email"`
	EmailVerified *bool    `json:"email_verified"`
	Name          string   `json:"name"`
}

// audience accepts both the string and the array form of aud.
type audience []string

func (a *audience) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*a = audience{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("aud: %w", err)
	}
	*a = many
	return nil
}

// Verify runs the checks in order: shape, issuer, signature, audience, expiry.
func (v *Verifier) Verify(ctx context.Context, raw string) (domainauth.IdentityClaims, error) {
	jws, err := jose.ParseSigned(raw, allowedAlgorithms)
	if err != nil {
		return domainauth.IdentityClaims{}, domainauth.NewVerificationError(domainauth.ErrMalformedToken, err)
	}
	if len(jws.Signatures) != 1 {
		return domainauth.IdentityClaims{}, domainauth.NewVerificationError(domainauth.ErrMalformedToken,
			fmt.Errorf("expected one signature, got %d", len(jws.Signatures)))
	}

	var unverified tokenClaims
	if decErr := json.Unmarshal(jws.UnsafePayloadWithoutVerification(), &unverified); decErr != nil {
		return domainauth.IdentityClaims{}, domainauth.NewVerificationError(domainauth.ErrMalformedToken, decErr)
	}
	if strings.TrimSuffix(unverified.Issuer, "/") != v.issuer {
		return domainauth.IdentityClaims{}, domainauth.NewVerificationError(domainauth.ErrIssuerMismatch,
			fmt.Errorf("issuer %q is not trusted", unverified.Issuer))
	}

	payload, err := v.keys.VerifySignature(ctx, raw)
	if err != nil {
		return domainauth.IdentityClaims{}, domainauth.NewVerificationError(domainauth.ErrBadSignature, err)
	}

	var tc tokenClaims
	if decErr := json.Unmarshal(payload, &tc); decErr != nil {
		return domainauth.IdentityClaims{}, domainauth.NewVerificationError(domainauth.ErrMalformedToken, decErr)
	}
	var doc map[string]any
	if decErr := json.Unmarshal(payload, &doc); decErr != nil {
		return domainauth.IdentityClaims{}, domainauth.NewVerificationError(domainauth.ErrMalformedToken, decErr)
	}

	if !slices.Contains(tc.Audience, v.clientID) {
		return domainauth.IdentityClaims{}, domainauth.NewVerificationError(domainauth.ErrAudienceMismatch,
			fmt.Errorf("audience %v does not include client", []string(tc.Audience)))
	}

	if tc.Expiry == nil {
		return domainauth.IdentityClaims{}, domainauth.NewVerificationError(domainauth.ErrTokenExpired,
			errors.New("missing exp"))
	}
	exp := unixToTime(*tc.Expiry)
	if !exp.After(v.now().Add(-v.skew)) {
		return domainauth.IdentityClaims{}, domainauth.NewVerificationError(domainauth.ErrTokenExpired,
			fmt.Errorf("expired at %s", exp.Format(time.RFC3339)))
	}

	role, err := v.claims.RoleClaim(doc)
	if err != nil {
		return domainauth.IdentityClaims{}, domainauth.NewVerificationError(domainauth.ErrMalformedToken, err)
	}

	email := strings.TrimSpace(tc.Email)
	if tc.EmailVerified != nil && !*tc.EmailVerified {
		email = ""
	}

	out := domainauth.IdentityClaims{
		Subject:   tc.Subject,
		Email:     email,
		Name:      tc.Name,
		Issuer:    tc.Issuer,
		Audience:  []string(tc.Audience),
		Role:      role,
		ExpiresAt: exp,
	}
	if tc.IssuedAt != nil {
		out.IssuedAt = unixToTime(*tc.IssuedAt)
	}
	return out, nil
}

func unixToTime(sec float64) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}
