package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/ports"
)

// MemoryStore is an in-memory implementation of the Store interface
type MemoryStore struct {
	values map[string]memoryValue
	mu     sync.RWMutex
	now    func() time.Time
}

type memoryValue struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Store {
	return &MemoryStore{
		values: make(map[string]memoryValue),
		now:    time.Now,
	}
}

// Set stores value under key. A zero ttl keeps the value until deleted.
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := memoryValue{value: value}
	if ttl > 0 {
		v.expiresAt = s.now().Add(ttl)
	}
	s.values[key] = v

	return nil
}

// Get returns the value stored under key
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.values[key]
	if !exists {
		return "", core.ErrNotFound
	}

	if !v.expiresAt.IsZero() && s.now().After(v.expiresAt) {
		return "", core.ErrNotFound
	}

	return v.value, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}
