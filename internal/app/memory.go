package app

import (
    "context"
    "sync"
)

type memoryRepository struct {
    mu       sync.RWMutex
    sessions map[string]*Session
}

// NewMemoryRepository keeps sessions in process memory.
func NewMemoryRepository() Repository {
    return &memoryRepository{sessions: make(map[string]*Session)}
}

func (m *memoryRepository) Save(_ context.Context, s *Session) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.sessions[s.ID] = s.Clone()
    return nil
}

func (m *memoryRepository) Get(_ context.Context, id string) (*Session, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    s, ok := m.sessions[id]
    if !ok {
        return nil, ErrNotFound
    }
    return s.Clone(), nil
}

func (m *memoryRepository) Delete(_ context.Context, id string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.sessions[id]; !ok {
        return ErrNotFound
    }
    delete(m.sessions, id)
    return nil
}
