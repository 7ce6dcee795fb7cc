package secrets

import (
	"context"
	"sync"
)

// MemoryStore — in-memory реализация Store для тестов.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore создаёт пустое in-memory хранилище секретов.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get возвращает значение секрета.
func (s *MemoryStore) Get(_ context.Context, ref string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[ref]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Upsert записывает значение секрета.
func (s *MemoryStore) Upsert(_ context.Context, ref, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[ref] = value
	return nil
}

// Delete удаляет секрет.
func (s *MemoryStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, ref)
	return nil
}
