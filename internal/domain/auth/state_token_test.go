package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStateToken_RoundTrip(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	tok, err := NewStateToken(now)
	if err != nil {
		t.Fatalf("NewStateToken: %v", err)
	}

	parsed, err := ParseStateToken(tok.String())
	if err != nil {
		t.Fatalf("ParseStateToken: %v", err)
	}
	if parsed.String() != tok.String() || !parsed.IssuedAt().Equal(now) {
		t.Fatalf("round trip mismatch: %q vs %q", parsed, tok)
	}
}

func TestStateToken_Unique(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		tok, err := NewStateToken(time.Now())
		if err != nil {
			t.Fatalf("NewStateToken: %v", err)
		}
		if seen[tok.String()] {
			t.Fatalf("duplicate state token")
		}
		seen[tok.String()] = true
	}
}

func TestParseStateToken_Malformed(t *testing.T) {
	good, err := NewStateToken(time.Now())
	if err != nil {
		t.Fatalf("NewStateToken: %v", err)
	}
	secret, _, _ := strings.Cut(good.String(), ".")

	cases := map[string]string{
		"empty":           "",
		"no separator":    secret,
		"bad timestamp":   secret + ".abc",
		"zero timestamp":  secret + ".0",
		"extra segment":   secret + ".1.2",
		"short secret":    "abcd.1760000000",
		"not base64":      "!!!!.1760000000",
		"empty secret":    ".1760000000",
		"empty timestamp": secret + ".",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseStateToken(raw); !errors.Is(err, ErrMalformedState) {
				t.Fatalf("expected ErrMalformedState, got %v", err)
			}
		})
	}
}

func TestStateToken_Expired(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	tok, err := NewStateToken(now)
	if err != nil {
		t.Fatalf("NewStateToken: %v", err)
	}
	if tok.Expired(now.Add(600*time.Second), DefaultStateTTL) {
		t.Fatalf("token at exactly ttl must still be valid")
	}
	if !tok.Expired(now.Add(601*time.Second), DefaultStateTTL) {
		t.Fatalf("token past ttl must be expired")
	}
}

func TestLoginFlow_Transitions(t *testing.T) {
	var f LoginFlow
	if f.State() != FlowIdle {
		t.Fatalf("zero flow must be idle")
	}
	if err := f.Advance(FlowExchanging); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
	for _, next := range []FlowState{FlowAwaitingCallback, FlowExchanging, FlowEstablished} {
		if err := f.Advance(next); err != nil {
			t.Fatalf("Advance(%s): %v", next, err)
		}
	}
	if err := f.Deny(ErrInvalidState); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("terminal flow must not be denied, got %v", err)
	}

	g := ResumeFlow(FlowAwaitingCallback)
	if err := g.Deny(ErrInvalidState); err != nil {
		t.Fatalf("Deny: %v", err)
	}
	if g.State() != FlowDenied || !errors.Is(g.Reason(), ErrInvalidState) {
		t.Fatalf("unexpected denied flow: %s %v", g.State(), g.Reason())
	}
}

func TestVerificationKinds(t *testing.T) {
	err := NewVerificationError(ErrAudienceMismatch, errors.New("aud=other"))
	if !errors.Is(err, ErrVerificationFailed) || !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("expected both kind and family to match: %v", err)
	}
	if errors.Is(err, ErrBadSignature) {
		t.Fatalf("kinds must not collapse")
	}
	if got := DenialReason(err); got != "audience_mismatch" {
		t.Fatalf("DenialReason = %q", got)
	}
	if got := DenialReason(ErrIssuerMismatch); got != "issuer_mismatch" {
		t.Fatalf("DenialReason = %q", got)
	}
}
