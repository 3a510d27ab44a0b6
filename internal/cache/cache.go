package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/paperscope/paperscope/pkg/models"
)

// persistWriteTimeout bounds the background write to the persistent
// tier; a slow store must not hold a goroutine forever.
const persistWriteTimeout = 10 * time.Second

// TwoTier layers the in-memory tier over an optional persistent Store.
// Reads fall through memory to the store and promote on hit; writes go
// to memory synchronously and to the store in the background.
type TwoTier struct {
	memory *Memory
	store  Store // nil when persistence is disabled

	memoryHits     atomic.Int64
	persistentHits atomic.Int64
	misses         atomic.Int64
	storeErrors    atomic.Int64
}

// NewTwoTier wires the tiers together. store may be nil.
func NewTwoTier(memory *Memory, store Store) *TwoTier {
	return &TwoTier{memory: memory, store: store}
}

// Get returns the cached result for key, consulting memory first.
// Persistent-tier errors degrade to a miss.
func (c *TwoTier) Get(ctx context.Context, key string) (*models.UnifiedDiscoveryResult, bool) {
	if result, ok := c.memory.Get(key); ok {
		c.memoryHits.Add(1)
		return result, true
	}
	if c.store == nil {
		c.misses.Add(1)
		return nil, false
	}

	result, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.storeErrors.Add(1)
		log.Warn().Err(err).Msg("Persistent cache read failed")
		c.misses.Add(1)
		return nil, false
	}
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	c.persistentHits.Add(1)
	c.memory.Put(key, result)
	return result, true
}

// Put stores a cacheable result in both tiers. Results that are not
// cacheable (every source failed and nothing was found) are dropped so
// a transient outage cannot be served for the TTL window.
func (c *TwoTier) Put(key string, result *models.UnifiedDiscoveryResult) {
	if !result.Cacheable() {
		return
	}
	c.memory.Put(key, result)
	if c.store == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistWriteTimeout)
		defer cancel()
		if err := c.store.Put(ctx, key, result, c.memory.ttl); err != nil {
			c.storeErrors.Add(1)
			log.Warn().Err(err).Msg("Persistent cache write failed")
		}
	}()
}

// Invalidate removes key from both tiers.
func (c *TwoTier) Invalidate(ctx context.Context, key string) {
	c.memory.Delete(key)
	if c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, key); err != nil {
		c.storeErrors.Add(1)
		log.Warn().Err(err).Msg("Persistent cache delete failed")
	}
}

// Stats merges tier statistics for the stats endpoint.
func (c *TwoTier) Stats() map[string]any {
	stats := c.memory.Stats()
	stats["memory_hits"] = c.memoryHits.Load()
	stats["persistent_hits"] = c.persistentHits.Load()
	stats["two_tier_misses"] = c.misses.Load()
	stats["store_errors"] = c.storeErrors.Load()
	stats["persistent_enabled"] = c.store != nil
	return stats
}

// Close closes the persistent tier if one is configured.
func (c *TwoTier) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
