package handlers

import (
	"errors"
	"sync"
	"time"

	"github.com/hanko-field/bizdoc/internal/editor"
)

// DefaultMaxSessions bounds the number of live editor sessions held in memory.
const DefaultMaxSessions = 32

// ErrSessionNotFound is returned when a session id is unknown or was evicted.
var ErrSessionNotFound = errors.New("sessions: not found")

// SessionStore keeps live editor sessions and serialises access to each one.
// Sessions themselves are not safe for concurrent use.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	limit   int
	now     func() time.Time
}

type sessionEntry struct {
	mu       sync.Mutex
	session  *editor.Session
	lastUsed time.Time
}

// NewSessionStore constructs a store holding at most limit sessions; the least
// recently used one is evicted when full.
func NewSessionStore(limit int, clock func() time.Time) *SessionStore {
	if limit <= 0 {
		limit = DefaultMaxSessions
	}
	if clock == nil {
		clock = time.Now
	}
	return &SessionStore{
		entries: make(map[string]*sessionEntry),
		limit:   limit,
		now:     clock,
	}
}

// Add registers a session and returns the id of the evicted session, if any.
func (s *SessionStore) Add(session *editor.Session) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted string
	if _, exists := s.entries[session.ID()]; !exists && len(s.entries) >= s.limit {
		var oldest time.Time
		for id, entry := range s.entries {
			if evicted == "" || entry.lastUsed.Before(oldest) {
				evicted = id
				oldest = entry.lastUsed
			}
		}
		delete(s.entries, evicted)
	}
	s.entries[session.ID()] = &sessionEntry{session: session, lastUsed: s.now()}
	return evicted
}

// With runs fn while holding the session's lock.
func (s *SessionStore) With(id string, fn func(*editor.Session) error) error {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok {
		entry.lastUsed = s.now()
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.session)
}

// Remove forgets a session. It reports whether the session existed.
func (s *SessionStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	return true
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
