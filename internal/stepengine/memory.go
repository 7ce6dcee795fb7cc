package stepengine

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore — in-memory реализация CheckpointStore.
// Используется в тестах и в sandbox-запусках без БД.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]json.RawMessage
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{checkpoints: make(map[string]json.RawMessage)}
}

func (s *MemoryStore) checkpointKey(key, name string) string {
	return key + "\x00" + name
}

// Get возвращает чекпоинт шага, если он существует.
func (s *MemoryStore) Get(_ context.Context, key, name string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.checkpoints[s.checkpointKey(key, name)]
	return raw, ok, nil
}

// Put сохраняет чекпоинт шага.
func (s *MemoryStore) Put(_ context.Context, key, name string, result json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoints[s.checkpointKey(key, name)] = result
	return nil
}

// Len возвращает количество сохранённых чекпоинтов.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checkpoints)
}
