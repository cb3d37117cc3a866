package objectstore

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store used by tests and DSN-less local runs.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory object store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, key, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[key] = buf
	return nil
}

func (m *Memory) PresignGet(key string) (string, error) {
	return fmt.Sprintf("memory://objects/%s", key), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	return nil
}

// Get returns a stored object, mainly for assertions in tests.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	return data, ok
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
