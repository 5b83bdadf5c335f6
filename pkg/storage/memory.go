package storage

import (
	"context"
	"sync"
)

// MemoryStorage is a minimal in-memory Storage implementation intended for
// tests and ephemeral stores. Payloads survive only for the life of the
// process.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]string
}

// NewMemoryStorage constructs an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: map[string]string{}}
}

// GetItem returns the payload filed under key, if any.
func (s *MemoryStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, wrapRead(key, ErrKeyRequired)
	}
	s.mu.RLock()
	payload, ok := s.records[key]
	s.mu.RUnlock()
	return payload, ok, nil
}

// SetItem files payload under key, replacing any previous payload.
func (s *MemoryStorage) SetItem(_ context.Context, key, payload string) error {
	if key == "" {
		return wrapWrite(key, ErrKeyRequired)
	}
	s.mu.Lock()
	s.records[key] = payload
	s.mu.Unlock()
	return nil
}

// Delete removes the payload filed under key. Missing keys are a no-op.
func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return wrapWrite(key, ErrKeyRequired)
	}
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored payloads.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
