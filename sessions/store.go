package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store is an in-memory session store with sliding expiration: every read or
// write of a session refreshes its last-access time, and a session is expired
// once now - last_access exceeds the configured lifetime. Expired sessions
// read as absent and are purged lazily on access or by the sweeper.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	lifetime time.Duration
	nowTime  func() time.Time // injectable for testing
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// NewStore creates a session store whose sessions expire lifetime after
// their last access.
func NewStore(lifetime time.Duration, options ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*session),
		lifetime: lifetime,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Create allocates a new session with a fresh random identifier and an empty
// data map, and returns the identifier.
func (s *Store) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := generateSessionID()
	now := s.nowTime()
	s.sessions[id] = &session{
		createdAt:  now,
		lastAccess: now,
		data:       make(map[string]any),
	}
	return id
}

// Resolve returns the session ID for a cookie value if the session exists and
// has not expired, refreshing its last-access time. Unknown or expired values
// return false; callers treat that as "not authenticated", never as an error.
func (s *Store) Resolve(cookieValue string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[cookieValue]
	if !ok {
		return "", false
	}
	if s.expired(sess) {
		delete(s.sessions, cookieValue)
		return "", false
	}
	sess.lastAccess = s.nowTime()
	return cookieValue, true
}

// Data returns a copy of the session's data map, excluding internal
// bookkeeping. Absent or expired sessions yield an empty map; expired
// sessions are deleted on the way out.
func (s *Store) Data(id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return map[string]any{}
	}
	if s.expired(sess) {
		delete(s.sessions, id)
		return map[string]any{}
	}
	sess.lastAccess = s.nowTime()

	data := make(map[string]any, len(sess.data))
	for k, v := range sess.data {
		data[k] = v
	}
	return data
}

// SetData merges partial into the session's data map, overwriting existing
// keys and leaving the rest untouched. The session is created first if it
// does not exist. Refreshes last-access.
func (s *Store) SetData(id string, partial map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowTime()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{
			createdAt: now,
			data:      make(map[string]any),
		}
		s.sessions[id] = sess
	}
	for k, v := range partial {
		sess.data[k] = v
	}
	sess.lastAccess = now
}

// Unset removes the given keys from the session's data map. Used to consume
// one-shot values such as the OAuth state token.
func (s *Store) Unset(id string, keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	for _, k := range keys {
		delete(sess.data, k)
	}
	sess.lastAccess = s.nowTime()
}

// Delete removes a session. Idempotent.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// SweepExpired removes every expired session and reports how many were
// removed. Safe to call concurrently with any other store operation.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live (not yet swept) sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunSweeper sweeps expired sessions on a fixed interval until ctx is
// cancelled. Run it in its own goroutine.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.SweepExpired(); removed > 0 {
				log.Debug().Int("removed", removed).Msg("swept expired sessions")
			}
		}
	}
}

// expired reports whether the session's last access is older than the
// configured lifetime. Callers must hold the lock.
func (s *Store) expired(sess *session) bool {
	return s.nowTime().Sub(sess.lastAccess) > s.lifetime
}
