package services

import (
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// SessionService owns the per-session state the pipeline needs: the armed
// denial (at most one per session) and a per-session lock that keeps query
// processing strictly sequential within a session while leaving sessions
// fully concurrent with each other.
//
// Denial states are ephemeral. They expire with the session TTL, and are
// otherwise cleared by a new (non-identical) query or consumed by a
// successful escalation send.
type SessionService struct {
	denials *cache.Cache

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSessionService creates a session service whose denial states expire
// after sessionTTL of inactivity.
func NewSessionService(sessionTTL time.Duration) *SessionService {
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	return &SessionService{
		denials: cache.New(sessionTTL, 10*time.Minute),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Lock returns the mutex serializing pipeline runs for one session.
func (s *SessionService) Lock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// ArmDenial records the query that was just denied for this session,
// replacing any previously armed denial.
func (s *SessionService) ArmDenial(sessionID, query string) {
	s.denials.Set(sessionID, query, cache.DefaultExpiration)
}

// DeniedQuery returns the armed denied query for a session, if any.
func (s *SessionService) DeniedQuery(sessionID string) (string, bool) {
	v, ok := s.denials.Get(sessionID)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// ClearDenial removes the armed denial for a session.
func (s *SessionService) ClearDenial(sessionID string) {
	s.denials.Delete(sessionID)
}

// ConsumeDenial clears the armed denial and returns the query it held.
// Used after a successful escalation send.
func (s *SessionService) ConsumeDenial(sessionID string) (string, bool) {
	query, ok := s.DeniedQuery(sessionID)
	if ok {
		s.denials.Delete(sessionID)
	}
	return query, ok
}
