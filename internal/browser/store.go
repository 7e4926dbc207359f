package browser

import (
	"context"
	"sync"

	"github.com/shaiso/Fabrika/internal/domain"
	"github.com/shaiso/Fabrika/internal/repo"
)

// SessionStore — персистенс SessionRecord за пределами жизни процесса.
//
// Продакшн-реализация — repo.SessionRepo (Postgres); для тестов и
// локальной разработки без БД есть MemoryStore.
type SessionStore interface {
	// LoadSession возвращает запись по sessionKey.
	// Отсутствие записи — repo.ErrNotFound.
	LoadSession(ctx context.Context, sessionKey string) (*domain.SessionRecord, error)

	// SaveSession сохраняет запись (insert или замена по sessionKey).
	SaveSession(ctx context.Context, rec *domain.SessionRecord) error
}

// MemoryStore — потокобезопасный in-memory SessionStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.SessionRecord
}

// NewMemoryStore создаёт пустой MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]domain.SessionRecord)}
}

// LoadSession возвращает копию записи по sessionKey.
func (s *MemoryStore) LoadSession(_ context.Context, sessionKey string) (*domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[sessionKey]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &rec, nil
}

// SaveSession сохраняет копию записи.
func (s *MemoryStore) SaveSession(_ context.Context, rec *domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.SessionKey] = *rec
	return nil
}
