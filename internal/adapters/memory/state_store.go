// Package memory provides process-local adapters for single-node development and tests.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/harborline/backoffice/internal/ports"
)

type stateEntry struct {
	issuedAt  time.Time
	expiresAt time.Time
}

// StateStore keeps state tokens in a map. Expired entries are evicted lazily on access.
type StateStore struct {
	mu      sync.Mutex
	entries map[string]stateEntry
	now     func() time.Time
}

// NewStateStore creates an empty in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{entries: make(map[string]stateEntry), now: time.Now}
}

// WithClock replaces the store clock; used by tests.
func (s *StateStore) WithClock(now func() time.Time) *StateStore {
	s.now = now
	return s
}

var _ ports.StateStore = (*StateStore)(nil)

func (s *StateStore) Put(_ context.Context, token string, issuedAt time.Time, ttl time.Duration) error {
	if token == "" {
		return errors.New("state token cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("state ttl must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	s.entries[token] = stateEntry{issuedAt: issuedAt, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *StateStore) Consume(_ context.Context, token string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	if !ok {
		return time.Time{}, false, nil
	}
	delete(s.entries, token)
	if !s.now().Before(e.expiresAt) {
		return time.Time{}, false, nil
	}
	return e.issuedAt, true, nil
}

// Len returns the number of stored entries, including not yet evicted expired ones.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *StateStore) evictLocked() {
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}
