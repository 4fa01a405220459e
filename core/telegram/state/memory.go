package state

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[Key]*Session
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[Key]*Session)}
}

func (m *MemoryStore) Load(_ context.Context, key Key) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, ErrNoSession
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, key Key, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = s.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
