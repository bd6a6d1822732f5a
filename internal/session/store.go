package session

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

// DefaultTTL is the inactivity window after which a session is evicted.
const DefaultTTL = time.Hour

// TranscriptArchive mirrors history outside process memory.
type TranscriptArchive interface {
	Append(ctx context.Context, sessionID string, turn Turn) error
	List(ctx context.Context, sessionID string, limit int64) ([]Turn, error)
}

// Store owns every live session. It is safe for concurrent use; the mutex
// guards the map, history and timestamps.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	archive  TranscriptArchive
	logger   *logging.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithArchive mirrors every appended turn to a.
func WithArchive(a TranscriptArchive) StoreOption {
	return func(s *Store) {
		s.archive = a
	}
}

// WithLogger sets the logger used for archive failures.
func WithLogger(logger *logging.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates an empty store. A non-positive ttl uses DefaultTTL.
func NewStore(ttl time.Duration, opts ...StoreOption) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the session for id, creating a default one on first reference.
// Every reference counts as activity, so a sweep cannot evict a session
// between Get and the turn's first AppendHistory.
func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	if sess, ok := s.sessions[id]; ok {
		sess.LastUpdatedAt = now
		return sess
	}
	sess := newSession(id, now)
	s.sessions[id] = sess
	return sess
}

// Lookup returns the session without creating it.
func (s *Store) Lookup(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// AppendHistory records a turn and refreshes the session's activity time.
// Archive failures are logged, never returned.
func (s *Store) AppendHistory(ctx context.Context, id string, role Role, text string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = newSession(id, s.now().UTC())
		s.sessions[id] = sess
	}
	now := s.now().UTC()
	turn := Turn{Role: role, Content: text, Timestamp: now}
	sess.History = append(sess.History, turn)
	sess.LastUpdatedAt = now
	s.mu.Unlock()

	if s.archive == nil {
		return
	}
	if err := s.archive.Append(ctx, id, turn); err != nil {
		s.logger.Warn("transcript archive append failed", "session_id", id, "error", err)
	}
}

// History returns a copy of the live transcript, or the archived one when
// the session has been evicted.
func (s *Store) History(ctx context.Context, id string) ([]Turn, bool, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	var out []Turn
	if ok {
		out = append(make([]Turn, 0, len(sess.History)), sess.History...)
	}
	s.mu.Unlock()
	if ok {
		return out, true, nil
	}
	if s.archive == nil {
		return nil, false, nil
	}
	turns, err := s.archive.List(ctx, id, 0)
	if err != nil {
		return nil, false, err
	}
	return turns, len(turns) > 0, nil
}

// ResetAgentState reinitializes one agent's sub-state. The caller must hold
// the session's turn lock.
func (s *Store) ResetAgentState(id string, intent Intent) {
	sess := s.Get(id)
	sess.resetAgent(intent)
	s.mu.Lock()
	sess.LastUpdatedAt = s.now().UTC()
	s.mu.Unlock()
}

// GarbageCollect deletes sessions idle for longer than the TTL and returns
// how many were removed.
func (s *Store) GarbageCollect() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().UTC().Add(-s.ttl)
	evicted := 0
	for id, sess := range s.sessions {
		if sess.LastUpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// TTL returns the inactivity window.
func (s *Store) TTL() time.Duration { return s.ttl }
