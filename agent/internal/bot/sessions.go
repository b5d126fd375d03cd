package bot

import (
	"context"
	"sync"
	"time"

	"moonbags-buybot/agent/internal/models"
	"moonbags-buybot/shared/config"
	"moonbags-buybot/shared/logger"
)

// Session is the in-flight wizard or boost interaction for one chat. Sessions
// are memory-only; an abandoned session is evicted after the TTL and the chat
// simply starts over.
type Session struct {
	State     string
	Draft     models.GroupConfig
	Order     *BoostOrder
	UpdatedAt time.Time
}

// BoostOrder is a picked-but-unpaid boost, waiting for /confirm with a
// payment digest.
type BoostOrder struct {
	TokenAddress string
	Tariff       config.BoostTariff
}

// SessionStore keeps per-chat sessions behind a mutex and evicts idle ones.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	ttl      time.Duration
	log      *logger.Logger
}

func NewSessionStore(ttl time.Duration, log *logger.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		log:      log,
	}
}

// Get returns the chat's session, or nil when none is active.
func (s *SessionStore) Get(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		return nil
	}
	sess.UpdatedAt = time.Now()
	return sess
}

// GetOrCreate returns the chat's session, creating an idle one if needed.
func (s *SessionStore) GetOrCreate(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		sess = &Session{State: stateIdle}
		s.sessions[chatID] = sess
	}
	sess.UpdatedAt = time.Now()
	return sess
}

func (s *SessionStore) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

// EvictIdle removes sessions untouched for longer than the TTL and returns
// how many were dropped.
func (s *SessionStore) EvictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for chatID, sess := range s.sessions {
		if now.Sub(sess.UpdatedAt) > s.ttl {
			delete(s.sessions, chatID)
			evicted++
		}
	}
	return evicted
}

// RunSweeper evicts idle sessions periodically until the context ends.
func (s *SessionStore) RunSweeper(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(time.Now()); n > 0 {
				s.log.Debug("Evicted idle wizard sessions", "count", n)
			}
		}
	}
}
