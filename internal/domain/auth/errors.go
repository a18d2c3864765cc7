package auth

import (
	"errors"
	"fmt"
)

// Authentication and authorization failures. All of them are terminal for the request.
var (
	ErrInvalidState        = errors.New("invalid state")
	ErrMalformedState      = errors.New("malformed state token")
	ErrMissingCode         = errors.New("missing authorization code")
	ErrTokenExchangeFailed = errors.New("token exchange failed")
	ErrVerificationFailed  = errors.New("identity token verification failed")
	ErrNoRoleClaim         = errors.New("no role claim")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrUnknownRole         = errors.New("unknown role")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExpired      = errors.New("session expired")
	ErrIllegalTransition   = errors.New("illegal login flow transition")
)

// Verification sub-kinds. Each one also matches ErrVerificationFailed.
var (
	ErrBadSignature     = &verificationKind{name: "bad_signature"}
	ErrTokenExpired     = &verificationKind{name: "expired"}
	ErrAudienceMismatch = &verificationKind{name: "audience_mismatch"}
	ErrIssuerMismatch   = &verificationKind{name: "issuer_mismatch"}
	ErrMalformedToken   = &verificationKind{name: "malformed"}
)

type verificationKind struct{ name string }

func (k *verificationKind) Error() string { return "identity token " + k.name }

func (k *verificationKind) Is(target error) bool {
	return target == ErrVerificationFailed || target == error(k)
}

// VerificationError carries the kind of verification failure plus the underlying cause.
type VerificationError struct {
	Kind  error
	Cause error
}

// NewVerificationError wraps cause under the given verification kind.
func NewVerificationError(kind, cause error) *VerificationError {
	return &VerificationError{Kind: kind, Cause: cause}
}

func (e *VerificationError) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *VerificationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// DenialReason maps an auth error onto a stable short code for logs and metrics.
func DenialReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrMissingCode):
		return "missing_code"
	case errors.Is(err, ErrTokenExchangeFailed):
		return "token_exchange_failed"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrAudienceMismatch):
		return "audience_mismatch"
	case errors.Is(err, ErrIssuerMismatch):
		return "issuer_mismatch"
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrVerificationFailed):
		return "verification_failed"
	case errors.Is(err, ErrNoRoleClaim):
		return "no_role_claim"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal"
	}
}
