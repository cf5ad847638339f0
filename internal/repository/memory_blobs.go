package repository

import (
	"context"
	"sync"
)

// MemoryBlobs is a BlobStore held in process memory.
type MemoryBlobs struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{values: make(map[string]string)}
}

func (m *MemoryBlobs) Load(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MemoryBlobs) Save(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

var _ BlobStore = (*MemoryBlobs)(nil)
