package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

// MemoryStorage is a mutex-guarded map scratchpad.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]domain.Term
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]domain.Term)}
}

func (s *MemoryStorage) Get(_ context.Context, key string) (domain.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return v, nil
}

func (s *MemoryStorage) Put(_ context.Context, key string, value domain.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStorage) Remove(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	delete(s.values, key)
	return ok, nil
}

func (s *MemoryStorage) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[key]
	return ok, nil
}

func (s *MemoryStorage) Clear(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(keys) == 0 {
		clear(s.values)
		return nil
	}
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (s *MemoryStorage) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
