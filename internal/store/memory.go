// Package store holds reply caches shared across requests.
package store

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a MemoryStore built with maxEntries <= 0.
const DefaultMaxEntries = 512

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process cache with a TTL and a bound on entries.
// When full, expired entries are swept first, then the oldest insertions go.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]entry
	order      []string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewMemoryStore(ttl time.Duration, maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if m.expired(e) {
		m.mu.Lock()
		// re-check under the write lock; a concurrent Set may have refreshed it
		if cur, ok := m.entries[key]; ok && m.expired(cur) {
			delete(m.entries, key)
			m.removeOrderLocked(key)
		}
		m.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; exists {
		m.removeOrderLocked(key)
	}
	var exp time.Time
	if m.ttl > 0 {
		exp = m.now().Add(m.ttl)
	}
	m.entries[key] = entry{value: value, expiresAt: exp}
	m.order = append(m.order, key)
	m.trimLocked()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)
}

func (m *MemoryStore) trimLocked() {
	if len(m.order) <= m.maxEntries {
		return
	}
	m.sweepExpiredLocked()
	for len(m.order) > m.maxEntries {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
}

func (m *MemoryStore) sweepExpiredLocked() {
	kept := m.order[:0]
	for _, k := range m.order {
		if m.expired(m.entries[k]) {
			delete(m.entries, k)
			continue
		}
		kept = append(kept, k)
	}
	m.order = kept
}

func (m *MemoryStore) removeOrderLocked(key string) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
