package cache

import (
	"sync"
	"time"

	"ncaasoccer_etl/rpi/internal/models"
)

type memoryEntry struct {
	snapshot *models.RankingSnapshot
	expires  time.Time
}

// MemoryCache is the in-process cache tier. It is owned exclusively by its
// process: it is never shared across instances and is invalidated
// independently of the durable tier. Expired entries are dropped lazily on
// read.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the cached snapshot for a calculation date, or false when the
// entry is absent or expired.
func (m *MemoryCache) Get(date string) (*models.RankingSnapshot, bool) {
	m.mu.RLock()
	entry, ok := m.entries[date]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if m.now().After(entry.expires) {
		m.mu.Lock()
		delete(m.entries, date)
		m.mu.Unlock()
		return nil, false
	}
	return entry.snapshot, true
}

// Set stores a snapshot under a calculation date with a TTL.
func (m *MemoryCache) Set(date string, snapshot *models.RankingSnapshot, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[date] = memoryEntry{snapshot: snapshot, expires: m.now().Add(ttl)}
}

// Delete removes the entry for one calculation date.
func (m *MemoryCache) Delete(date string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, date)
}

// Clear wipes the entire tier.
func (m *MemoryCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
}

// Len returns the number of live entries, counting expired ones not yet
// swept.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
