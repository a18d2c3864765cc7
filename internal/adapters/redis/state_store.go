package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/harborline/backoffice/internal/ports"
	"github.com/redis/go-redis/v9"
)

// StateStore keeps OAuth state tokens in Redis with a TTL.
// Consume uses GETDEL so that two concurrent callbacks with the same state
// cannot both observe the key.
type StateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewStateStore creates a Redis-backed state store.
func NewStateStore(client redis.UniversalClient) *StateStore {
	return &StateStore{client: client, prefix: "oauth_state:"}
}

// NewStateStoreWithPrefix creates a state store with a custom key prefix.
func NewStateStoreWithPrefix(client redis.UniversalClient, prefix string) *StateStore {
	return &StateStore{client: client, prefix: prefix}
}

var _ ports.StateStore = (*StateStore)(nil)

func (s *StateStore) Put(ctx context.Context, token string, issuedAt time.Time, ttl time.Duration) error {
	if token == "" {
		return errors.New("state token cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("state ttl must be positive")
	}
	val := strconv.FormatInt(issuedAt.Unix(), 10)
	if err := s.client.Set(ctx, s.prefix+token, val, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", ports.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *StateStore) Consume(ctx context.Context, token string) (time.Time, bool, error) {
	if token == "" {
		return time.Time{}, false, nil
	}
	val, err := s.client.GetDel(ctx, s.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("%w: redis getdel: %w", ports.ErrStoreUnavailable, err)
	}
	sec, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// The entry is gone either way; a corrupt value is treated as absent.
		return time.Time{}, false, nil
	}
	return time.Unix(sec, 0).UTC(), true, nil
}
