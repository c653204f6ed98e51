package state

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemoryStore constructs a process-lifetime in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[int64]Session),
	}
}

// Get returns a copy of the stored session.
func (m *memoryStore) Get(_ context.Context, userID int64) (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[userID]
	if !ok {
		return Session{}, false, nil
	}
	return sess.Clone(), true, nil
}

// Put replaces the session for a user.
func (m *memoryStore) Put(_ context.Context, userID int64, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[userID] = sess.Clone()
	return nil
}

// Delete removes the entire session for a user.
func (m *memoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
	return nil
}

// Count reports the number of users with a session.
func (m *memoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}
