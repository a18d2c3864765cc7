package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StateTokenBytes is the number of random bytes in a state token secret (256 bits).
const StateTokenBytes = 32

// DefaultStateTTL is how long an issued state token stays valid.
const DefaultStateTTL = 600 * time.Second

// StateToken is a one-time anti-CSRF value binding a login request to its callback.
// Wire form: <base64url secret>.<unix seconds of creation>.
type StateToken struct {
	secret   string
	issuedAt time.Time
}

// NewStateToken generates a random state token created at now.
func NewStateToken(now time.Time) (StateToken, error) {
	b := make([]byte, StateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return StateToken{}, fmt.Errorf("generate state: %w", err)
	}
	return StateToken{
		secret:   base64.RawURLEncoding.EncodeToString(b),
		issuedAt: time.Unix(now.Unix(), 0).UTC(),
	}, nil
}

// ParseStateToken parses the wire form. It does not check freshness or presence.
func ParseStateToken(raw string) (StateToken, error) {
	secret, ts, ok := strings.Cut(raw, ".")
	if !ok || secret == "" || ts == "" || strings.Contains(ts, ".") {
		return StateToken{}, ErrMalformedState
	}
	decoded, err := base64.RawURLEncoding.DecodeString(secret)
	if err != nil || len(decoded) != StateTokenBytes {
		return StateToken{}, ErrMalformedState
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || sec <= 0 {
		return StateToken{}, ErrMalformedState
	}
	return StateToken{secret: secret, issuedAt: time.Unix(sec, 0).UTC()}, nil
}

// String returns the wire form.
func (t StateToken) String() string {
	if t.secret == "" {
		return ""
	}
	return t.secret + "." + strconv.FormatInt(t.issuedAt.Unix(), 10)
}

// IssuedAt returns the embedded creation time.
func (t StateToken) IssuedAt() time.Time { return t.issuedAt }

// Age returns how old the token is at now.
func (t StateToken) Age(now time.Time) time.Duration { return now.Sub(t.issuedAt) }

// Expired reports whether the token is older than maxAge at now.
func (t StateToken) Expired(now time.Time, maxAge time.Duration) bool {
	return t.Age(now) > maxAge
}
