package redis

// Package redis provides Redis-based adapters for the back-office auth core.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/ports"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-based session store for production use.
// It handles TTL semantics automatically based on session ExpiresAt and keeps a
// per-user index set so that all sessions of a user can be revoked at once.
type SessionStore struct {
	client     redis.UniversalClient
	prefix     string
	userPrefix string
	now        func() time.Time
}

// NewSessionStore creates a new Redis-based session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return NewSessionStoreWithPrefix(client, "session:")
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{
		client:     client,
		prefix:     prefix,
		userPrefix: prefix + "user:",
		now:        time.Now,
	}
}

var _ ports.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		// Session is already expired, don't save it
		return domainauth.ErrSessionExpired
	}

	indexKey := s.userPrefix + sess.UserID
	indexTTL := sess.AbsoluteExpiresAt.Sub(s.now())
	if indexTTL < ttl {
		indexTTL = ttl
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.prefix+sess.ID, data, ttl)
		pipe.SAdd(ctx, indexKey, sess.ID)
		pipe.Expire(ctx, indexKey, indexTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, domainauth.ErrSessionNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, domainauth.ErrSessionNotFound
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}

	// Redis TTL normally evicts first; the absolute cap is not reflected in the key TTL.
	if sess.Expired(s.now()) {
		if deleteErr := s.Delete(ctx, id); deleteErr != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", deleteErr)
		}
		return domainauth.Session{}, domainauth.ErrSessionNotFound
	}

	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil // Nothing to delete
	}
	return s.client.Del(ctx, s.prefix+id).Err()
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}
	indexKey := s.userPrefix + userID
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.prefix+id)
	}

	var deleted *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, keys...)
		pipe.Del(ctx, indexKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis delete user sessions: %w", err)
	}
	return int(deleted.Val()), nil
}

func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]domainauth.Session, error) {
	if userID == "" {
		return nil, nil
	}
	ids, err := s.client.SMembers(ctx, s.userPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}

	out := make([]domainauth.Session, 0, len(ids))
	for _, id := range ids {
		sess, getErr := s.Get(ctx, id)
		if errors.Is(getErr, domainauth.ErrSessionNotFound) {
			// Stale index entry; the session key already expired.
			s.client.SRem(ctx, s.userPrefix+userID, id)
			continue
		}
		if getErr != nil {
			return nil, getErr
		}
		out = append(out, sess)
	}
	return out, nil
}
