package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/observability/metrics"
	"github.com/harborline/backoffice/internal/ports"
	"github.com/harborline/backoffice/internal/util"
)

// StateSource tells which copy of a state token vouched for a callback.
type StateSource string

const (
	StateSourcePrimary  StateSource = "primary"
	StateSourceFallback StateSource = "fallback"
)

// StateValidation is the result of a successful state check.
type StateValidation struct {
	Source   StateSource
	IssuedAt time.Time
}

// StateTokenServiceOptions groups dependencies for StateTokenService.
type StateTokenServiceOptions struct {
	Store   ports.StateStore
	TTL     time.Duration
	Logger  *slog.Logger     // Optional: structured logger
	Metrics *metrics.Metrics // Optional
	Now     func() time.Time // Optional: clock override for tests
}

// StateTokenService issues single-use OAuth state tokens and validates them on callback.
type StateTokenService struct {
	store   ports.StateStore
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewStateTokenService constructs a StateTokenService.
func NewStateTokenService(opts StateTokenServiceOptions) (*StateTokenService, error) {
	if opts.Store == nil {
		return nil, errors.New("StateStore is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = domainauth.DefaultStateTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &StateTokenService{
		store:   opts.Store,
		ttl:     ttl,
		logger:  logger.With("component", "state_tokens"),
		metrics: opts.Metrics,
		now:     now,
	}, nil
}

// TTL returns the lifetime given to issued tokens.
func (s *StateTokenService) TTL() time.Duration { return s.ttl }

// Issue creates a new state token and writes it to the primary store.
// When the store is unreachable the token is still returned so the browser-held
// fallback copy can carry the flow; the degradation is logged.
func (s *StateTokenService) Issue(ctx context.Context) (domainauth.StateToken, error) {
	tok, err := domainauth.NewStateToken(s.now())
	if err != nil {
		return domainauth.StateToken{}, err
	}
	if putErr := s.store.Put(ctx, tok.String(), tok.IssuedAt(), s.ttl); putErr != nil {
		if !errors.Is(putErr, ports.ErrStoreUnavailable) {
			return domainauth.StateToken{}, fmt.Errorf("store state token: %w", putErr)
		}
		s.logger.WarnContext(ctx, "state store unavailable at issue; relying on fallback copy",
			"security_event", "state_store_degraded",
			"state_prefix", util.TokenPrefix(tok.String()),
			"error", putErr)
	}
	return tok, nil
}

// ValidateAndConsume checks a callback state value. The primary store entry is consumed
// atomically. fallbackCopy, the browser-held copy, is consulted only when the primary store
// is unreachable; a definitive miss in the primary store is never rescued by it.
// maxAge <= 0 means the issue TTL.
func (s *StateTokenService) ValidateAndConsume(
	ctx context.Context,
	raw string,
	maxAge time.Duration,
	fallbackCopy string,
) (StateValidation, error) {
	if maxAge <= 0 {
		maxAge = s.ttl
	}
	tok, err := domainauth.ParseStateToken(raw)
	if err != nil {
		return StateValidation{}, fmt.Errorf("%w: %w", domainauth.ErrInvalidState, err)
	}

	issuedAt, found, err := s.store.Consume(ctx, tok.String())
	switch {
	case errors.Is(err, ports.ErrStoreUnavailable):
		return s.validateFallback(ctx, tok, maxAge, fallbackCopy, err)
	case err != nil:
		return StateValidation{}, fmt.Errorf("%w: consume: %w", domainauth.ErrInvalidState, err)
	case !found:
		return StateValidation{}, fmt.Errorf("%w: not issued or already used", domainauth.ErrInvalidState)
	}

	if !issuedAt.IsZero() && issuedAt.Unix() != tok.IssuedAt().Unix() {
		return StateValidation{}, fmt.Errorf("%w: timestamp mismatch", domainauth.ErrInvalidState)
	}
	if tok.Expired(s.now(), maxAge) {
		return StateValidation{}, fmt.Errorf("%w: expired", domainauth.ErrInvalidState)
	}

	s.metrics.StateValidated(string(StateSourcePrimary))
	return StateValidation{Source: StateSourcePrimary, IssuedAt: tok.IssuedAt()}, nil
}

func (s *StateTokenService) validateFallback(
	ctx context.Context,
	tok domainauth.StateToken,
	maxAge time.Duration,
	fallbackCopy string,
	storeErr error,
) (StateValidation, error) {
	presented := tok.String()
	if fallbackCopy == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(fallbackCopy)) != 1 {
		return StateValidation{}, fmt.Errorf("%w: store unavailable and fallback mismatch: %w",
			domainauth.ErrInvalidState, storeErr)
	}
	if tok.Expired(s.now(), maxAge) {
		return StateValidation{}, fmt.Errorf("%w: expired", domainauth.ErrInvalidState)
	}

	s.logger.WarnContext(ctx, "state validated via fallback copy",
		"security_event", "state_fallback_used",
		"state_prefix", util.TokenPrefix(presented),
		"error", storeErr)
	s.metrics.StateValidated(string(StateSourceFallback))
	return StateValidation{Source: StateSourceFallback, IssuedAt: tok.IssuedAt()}, nil
}
