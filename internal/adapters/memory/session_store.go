package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/ports"
)

// SessionStore keeps sessions in a map keyed by ID. Safe for concurrent use.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domainauth.Session
	now      func() time.Time
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]domainauth.Session), now: time.Now}
}

// WithClock replaces the store clock; used by tests.
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

var _ ports.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	if sess.Expired(s.now()) {
		return domainauth.ErrSessionExpired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return domainauth.Session{}, domainauth.ErrSessionNotFound
	}
	if sess.Expired(s.now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return domainauth.Session{}, domainauth.ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) DeleteByUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *SessionStore) ListByUser(_ context.Context, userID string) ([]domainauth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var out []domainauth.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && !sess.Expired(now) {
			out = append(out, sess)
		}
	}
	return out, nil
}
