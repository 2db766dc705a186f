package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mhpenta/tryon"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

type session struct {
	conv     *tryon.Conversation
	created  time.Time
	lastSeen time.Time
}

// SessionStore keeps conversations in memory and drops them after ttl of
// inactivity.
type SessionStore struct {
	ttl      time.Duration
	now      func() time.Time
	onChange func(n int)

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionStore creates a store. A zero ttl keeps sessions forever.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		onChange: func(int) {},
		sessions: make(map[string]*session),
	}
}

// Create stores conv under a new random id.
func (s *SessionStore) Create(conv *tryon.Conversation) string {
	id := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	s.sessions[id] = &session{conv: conv, created: now, lastSeen: now}
	n := len(s.sessions)
	s.mu.Unlock()

	s.onChange(n)
	return id
}

// Get returns the conversation and marks the session as used.
func (s *SessionStore) Get(id string) (*tryon.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.expired(sess) {
		return nil, ErrSessionNotFound
	}
	sess.lastSeen = s.now()
	return sess.conv, nil
}

// Delete removes a session. It reports whether the session existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	if ok {
		s.onChange(n)
	}
	return ok
}

// Len returns the number of stored sessions, expired ones included until the
// next sweep.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		s.onChange(n)
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *SessionStore) expired(sess *session) bool {
	return s.ttl > 0 && s.now().Sub(sess.lastSeen) > s.ttl
}
