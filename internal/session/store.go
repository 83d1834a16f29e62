package session

import (
	"sync"
	"time"

	"github.com/attunelabs/attune/internal/errors"
)

// Store owns the live set of session records. It is the only mutable
// structure shared across sessions, and supports safe concurrent
// insert/lookup/remove. Mutation of an individual record is reserved for
// the engine's per-session worker; external readers get deep copies via
// Snapshot.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Add inserts a session record. Returns an error if the ID is already
// present.
func (s *Store) Add(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return errors.NewSessionError("session already exists", nil).WithSessionID(sess.ID)
	}
	s.sessions[sess.ID] = sess
	return nil
}

// Get returns the live session record. The caller must be the session's
// serialized handler; everyone else should use Snapshot.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	return sess, ok
}

// Snapshot returns a deep copy of the session record, safe to hand to
// callers outside the engine. Returns ErrSessionNotFound for unknown IDs.
func (s *Store) Snapshot(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrSessionNotFound, "snapshot %s", id)
	}
	return sess.Clone(), nil
}

// MarkEnded transitions a session record to the ended state. The status
// write happens under the store lock so that concurrent readers like
// ActiveCount never observe a torn update. Marking an unknown ID is a no-op.
func (s *Store) MarkEnded(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.Status = StatusEnded
		sess.EndedAt = at
	}
}

// Remove deletes a session record. Removing an unknown ID is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// IDs returns the IDs of all stored sessions, active and ended.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// ActiveCount returns the number of sessions still in the active state.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sess := range s.sessions {
		if sess.Status == StatusActive {
			count++
		}
	}
	return count
}

// Len returns the total number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
