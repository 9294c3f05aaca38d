// Package session holds the ephemeral per-user search sessions: an ordered
// candidate list with a cursor, never persisted. A process restart simply
// forces the user to search again.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kamaqiyasov/vkinder/internal/vk"
)

// Session is one user's live candidate cursor.
type Session struct {
	UserID     int64  // external id the conversation runs under
	LedgerID   uint64 // internal user id for ledger writes
	Candidates []vk.Candidate
	Cursor     int
	CreatedAt  time.Time

	mu sync.Mutex
}

// Store owns the live sessions, at most one per user. It is safe for
// concurrent use and injected wherever sessions are needed.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

func (s *Store) Get(userID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Put installs the session, replacing any previous one for the user.
func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
}

func (s *Store) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *Store) Active(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[userID]
	return ok
}

// Sweep drops sessions older than ttl, measured from creation. Age is not
// refreshed by activity; a long browse simply ends after the TTL and the
// user starts a fresh search. Returns how many sessions were dropped.
func (s *Store) Sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper periodically sweeps until ctx is cancelled.
func (s *Store) RunSweeper(ctx context.Context, interval, ttl time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ttl); n > 0 {
				log.Info("swept expired search sessions", "count", n)
			}
		}
	}
}
