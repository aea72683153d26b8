package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/VoiceClub/internal/core"
	"github.com/dkeye/VoiceClub/internal/domain"
)

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[domain.SessionID]domain.Session)}
}

var _ core.SessionStore = (*MemoryStore)(nil)

func (m *MemoryStore) Create(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemoryStore) List(_ context.Context, status domain.SessionStatus) ([]domain.Session, error) {
	m.mu.RLock()
	out := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()
	newestFirst(out)
	return out, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id domain.SessionID, from, to domain.SessionStatus, at time.Time) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if err := transition(&s, from, to, at); err != nil {
		return nil, err
	}
	m.sessions[id] = s
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id domain.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if s.Status == domain.StatusLive {
		return domain.ErrSessionLive
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
