package service

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/noah-isme/schedbot-api/internal/models"
	"github.com/noah-isme/schedbot-api/pkg/config"
)

// Session holds the per-conversation scheduling memory: the event draft
// being assembled and the running transcript. The mutex serialises turns so
// a later message can never interleave with one still in flight.
type Session struct {
	mu         sync.Mutex
	ID         string
	Draft      models.EventDraft
	Transcript []models.ChatTurn
}

// Lock acquires the per-session turn lock.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the per-session turn lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Reset clears the draft and transcript in place.
func (s *Session) Reset() {
	s.Draft = models.EventDraft{}
	s.Transcript = nil
}

// SessionStore keeps sessions in memory, keyed by session ID, with TTL
// expiry. State does not survive a process restart.
type SessionStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *Session]
}

// NewSessionStore builds a store bounded by cfg.MaxEntries with cfg.TTL
// idle expiry.
func NewSessionStore(cfg config.SessionConfig) *SessionStore {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &SessionStore{
		cache: expirable.NewLRU[string, *Session](maxEntries, nil, cfg.TTL),
	}
}

// Get returns the session for the given ID, creating an empty one on first
// use.
func (s *SessionStore) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.cache.Get(id); ok {
		return session
	}

	session := &Session{ID: id}
	s.cache.Add(id, session)
	return session
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
