package repository

import (
	"context"
	"sync"
	"time"

	"fitstudio/internal/models"
)

type memoryCacheEntry struct {
	views     []models.ClassView
	expiresAt time.Time
}

// MemoryClassCache is the in-process fallback for the class listing cache.
type MemoryClassCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	ttl     time.Duration
}

func NewMemoryClassCache(ttl time.Duration) *MemoryClassCache {
	return &MemoryClassCache{
		entries: make(map[string]memoryCacheEntry),
		ttl:     ttl,
	}
}

func (m *MemoryClassCache) Get(ctx context.Context, tz string) ([]models.ClassView, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[tz]
	m.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.views, true, nil
}

func (m *MemoryClassCache) Set(ctx context.Context, tz string, views []models.ClassView) error {
	m.mu.Lock()
	m.entries[tz] = memoryCacheEntry{
		views:     views,
		expiresAt: time.Now().Add(m.ttl),
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryClassCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]memoryCacheEntry)
	m.mu.Unlock()
	return nil
}
