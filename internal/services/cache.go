package services

import (
	"context"
	"sync"
	"time"
)

// CacheBackend is a small hot cache in front of the SQLite stores. Values are
// opaque to the backend; callers own serialization.
type CacheBackend interface {
	// Set stores a value under key with a TTL. A zero TTL keeps the value
	// until evicted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the value for key, or (nil, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Flush removes all keys.
	Flush(ctx context.Context) error
}

type memoryCacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryCacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCacheBackend is an in-process CacheBackend. It is the default when no
// Redis address is configured.
type MemoryCacheBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
}

// NewMemoryCacheBackend creates an empty in-process cache.
func NewMemoryCacheBackend() *MemoryCacheBackend {
	return &MemoryCacheBackend{entries: make(map[string]memoryCacheEntry)}
}

// Set stores a value under key with a TTL.
func (m *MemoryCacheBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryCacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

// Get returns the value for key, or (nil, nil) on a miss.
func (m *MemoryCacheBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if entry.expired(time.Now()) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, nil
	}
	return append([]byte(nil), entry.value...), nil
}

// Delete removes a key.
func (m *MemoryCacheBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Flush removes all keys.
func (m *MemoryCacheBackend) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryCacheEntry)
	return nil
}
