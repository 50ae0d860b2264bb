package attachstore

import (
	"context"
	"sync"

	"github.com/hamyar-ai/hamyar/internal/domain/upload"
)

// MemoryStorage keeps attachments in process memory for tests/dev.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStorage constructs an in-memory object store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

// Put implements upload.ObjectStorage.
func (s *MemoryStorage) Put(_ context.Context, key string, data []byte, mimeType string) (upload.StoredObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := append([]byte(nil), data...)
	s.objects[key] = clone
	return upload.StoredObject{
		Key:      key,
		URL:      "memory://" + key,
		Size:     int64(len(clone)),
		MimeType: mimeType,
	}, nil
}

// Get returns stored bytes, for test assertions.
func (s *MemoryStorage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}

var _ upload.ObjectStorage = (*MemoryStorage)(nil)
