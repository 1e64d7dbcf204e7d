package cache

import (
	"net/http"
	"sync"
)

// MemoryCache implements Provider without touching the disk. Stored files
// stay where the caller downloaded them.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryEntry
}

type memoryEntry struct {
	path string
	etag string
}

// NewMemory creates an empty in-memory cache
func NewMemory() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryEntry)}
}

func (m *MemoryCache) HeaderValues(key string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.items[key]
	if !ok {
		return headerValues(nil)
	}
	return headerValues(&entry.etag)
}

func (m *MemoryCache) CachedItem(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.items[key]
	if !ok {
		return "", ErrCachedItemNotFound
	}
	return entry.path, nil
}

func (m *MemoryCache) Store(downloadedFile, key string, headers http.Header) (string, error) {
	etag, ok := etagFrom(headers)
	if !ok {
		return "", ErrUnableToStore
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = memoryEntry{path: downloadedFile, etag: etag}
	return downloadedFile, nil
}

func (m *MemoryCache) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]memoryEntry)
	return nil
}
