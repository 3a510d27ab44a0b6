// Package cache implements the two-tier discovery result cache: a
// bounded in-memory map in front of an optional persistent key-value
// store (SQLite, PostgreSQL, or Redis).
package cache

import (
	"context"
	"time"

	"github.com/paperscope/paperscope/pkg/models"
)

// Default sizing for the in-memory tier.
const (
	DefaultMaxEntries = 1000
	DefaultTTL        = 8 * time.Hour
)

// Store is a persistent result tier. Implementations serialize the
// result themselves and must treat an expired entry as a miss.
type Store interface {
	// Get returns the cached result for key, or ok=false on a miss.
	Get(ctx context.Context, key string) (result *models.UnifiedDiscoveryResult, ok bool, err error)

	// Put stores result under key with the given lifetime.
	Put(ctx context.Context, key string, result *models.UnifiedDiscoveryResult, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Prune removes expired entries where the backend does not expire
	// them natively. Returns the number removed.
	Prune(ctx context.Context) (int, error)

	Close() error
}
