package session

import (
	"sync"

	"github.com/naveenspark/clubdesk/pkg/domain"
)

// MemoryStore keeps the session in process memory. Used by tests and
// --store memory runs.
type MemoryStore struct {
	mu      sync.RWMutex
	session *domain.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Clone()
}

func (m *MemoryStore) Save(s *domain.Session) error {
	if err := checkComplete(s); err != nil {
		return err
	}
	m.mu.Lock()
	m.session = s.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
	return nil
}
