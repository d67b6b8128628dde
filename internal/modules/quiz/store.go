package quiz

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fynix-backend/internal/platform/apierr"
)

var ErrSessionNotFound = errors.New("quiz session not found")

const (
	DefaultSessionTTL  = 2 * time.Hour
	DefaultMaxSessions = 10000
)

// SessionStore keeps Ready-state sessions in memory. Sessions idle for
// longer than ttl are dropped lazily on Put; when max is reached the
// longest-idle session goes first.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	max      int
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration, max int) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &SessionStore{
		sessions: map[uuid.UUID]*Session{},
		ttl:      ttl,
		max:      max,
		now:      time.Now,
	}
}

func (s *SessionStore) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	if len(s.sessions) >= s.max {
		var (
			oldestID uuid.UUID
			oldest   time.Time
		)
		for id, other := range s.sessions {
			if t := other.idleSince(); oldest.IsZero() || t.Before(oldest) {
				oldestID, oldest = id, t
			}
		}
		delete(s.sessions, oldestID)
	}
	s.sessions[sess.ID] = sess
}

// Get returns the session only to its owner. A session owned by someone
// else is reported as missing.
func (s *SessionStore) Get(userID, id uuid.UUID) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok && s.now().Sub(sess.idleSince()) > s.ttl {
		delete(s.sessions, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok || sess.UserID != userID {
		return nil, apierr.NotFound("session_not_found", ErrSessionNotFound)
	}
	return sess, nil
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) evictLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
