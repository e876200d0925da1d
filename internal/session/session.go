// Package session keeps short-lived chat conversations in memory. Expiry is
// checked on access against a last-seen timestamp instead of running timers,
// so nothing leaks under test and the clock is injectable.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultTTL is how long an idle session survives.
	DefaultTTL = 30 * time.Minute
	// DefaultCapacity bounds how many sessions are retained at once;
	// the least recently used session is evicted beyond it.
	DefaultCapacity = 256
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role string
	Text string
	At   time.Time
}

// Session is a single conversation's history.
type Session struct {
	ID       string
	Turns    []Turn
	lastSeen time.Time
}

// Store holds sessions in an LRU map with on-access expiry.
type Store struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Session]
	ttl   time.Duration
	now   func() time.Time
}

// NewStore creates a session store. Non-positive arguments take defaults.
func NewStore(capacity int, ttl time.Duration) (*Store, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache, err := lru.New[string, *Session](capacity)
	if err != nil {
		return nil, err
	}
	return &Store{cache: cache, ttl: ttl, now: time.Now}, nil
}

// Start creates a fresh session and returns its id.
func (s *Store) Start() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.cache.Add(id, &Session{ID: id, lastSeen: s.now()})
	return id
}

// Append records a turn on the session. Expired or unknown sessions are
// recreated under the same id so a stale chat surface keeps working.
func (s *Store) Append(id, role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getLocked(id)
	if sess == nil {
		sess = &Session{ID: id}
		s.cache.Add(id, sess)
	}
	now := s.now()
	sess.Turns = append(sess.Turns, Turn{Role: role, Text: text, At: now})
	sess.lastSeen = now
}

// History returns a copy of the session's turns, or nil if the session is
// unknown or has expired.
func (s *Store) History(id string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getLocked(id)
	if sess == nil {
		return nil
	}
	sess.lastSeen = s.now()
	out := make([]Turn, len(sess.Turns))
	copy(out, sess.Turns)
	return out
}

// End removes the session immediately.
func (s *Store) End(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(id)
}

// Len reports how many live sessions are stored. Expired entries still in
// the map are not counted out; they disappear on access.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

// getLocked fetches a session, evicting it if the TTL has lapsed.
func (s *Store) getLocked(id string) *Session {
	sess, ok := s.cache.Get(id)
	if !ok {
		return nil
	}
	if s.now().Sub(sess.lastSeen) > s.ttl {
		s.cache.Remove(id)
		return nil
	}
	return sess
}
