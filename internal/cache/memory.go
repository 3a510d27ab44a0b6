package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/paperscope/paperscope/pkg/models"
)

const (
	// Start the expired-entry scan at 80% capacity so most puts stay O(1).
	evictionThresholdPct = 80
	// Evict 10% of capacity per overflow pass.
	evictionBatchPct = 10
)

type memoryEntry struct {
	result    *models.UnifiedDiscoveryResult
	expiresAt time.Time
}

// Memory is the bounded in-memory result tier. Expiry is measured from
// write time; eviction is amortized across puts.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// MemoryOption customizes a Memory cache.
type MemoryOption func(*Memory)

// WithMemoryClock overrides the time source. Test hook.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates the in-memory tier. Non-positive maxEntries or ttl
// fall back to the defaults.
func NewMemory(maxEntries int, ttl time.Duration, opts ...MemoryOption) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the cached result for key if present and unexpired.
func (m *Memory) Get(key string) (*models.UnifiedDiscoveryResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if entry, ok := m.entries[key]; ok {
		if m.now().Before(entry.expiresAt) {
			m.hits.Add(1)
			return entry.result, true
		}
	}
	m.misses.Add(1)
	return nil, false
}

// Put stores result under key. When the map is at 80% capacity or more
// it first drops expired entries; if still full it evicts a batch in
// random map order, which approximates FIFO well enough here.
func (m *Memory) Put(key string, result *models.UnifiedDiscoveryResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	size := len(m.entries)

	threshold := (m.maxEntries * evictionThresholdPct) / 100
	if size >= threshold {
		for k, v := range m.entries {
			if now.After(v.expiresAt) {
				delete(m.entries, k)
			}
		}
		size = len(m.entries)
	}

	if size >= m.maxEntries {
		batch := max(m.maxEntries*evictionBatchPct/100, 1)
		evicted := 0
		for k := range m.entries {
			delete(m.entries, k)
			evicted++
			if evicted >= batch {
				break
			}
		}
	}

	m.entries[key] = &memoryEntry{
		result:    result,
		expiresAt: now.Add(m.ttl),
	}
}

// Delete removes key from the tier.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Clear drops every entry. Useful for tests and after data changes.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*memoryEntry)
}

// Stats reports tier occupancy and hit counters.
func (m *Memory) Stats() map[string]any {
	m.mu.RLock()
	size := len(m.entries)
	m.mu.RUnlock()

	return map[string]any{
		"size":        size,
		"max_entries": m.maxEntries,
		"ttl_sec":     m.ttl.Seconds(),
		"hits":        m.hits.Load(),
		"misses":      m.misses.Load(),
	}
}
