package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperscope/paperscope/pkg/models"
)

// fakeStore is an in-memory Store double with an injectable failure.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string]*models.UnifiedDiscoveryResult
	failAll bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]*models.UnifiedDiscoveryResult)}
}

func (f *fakeStore) Get(ctx context.Context, key string) (*models.UnifiedDiscoveryResult, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, false, errors.New("store down")
	}
	r, ok := f.data[key]
	return r, ok, nil
}

func (f *fakeStore) Put(ctx context.Context, key string, result *models.UnifiedDiscoveryResult, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store down")
	}
	f.data[key] = result
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeStore) Prune(ctx context.Context) (int, error) { return 0, nil }
func (f *fakeStore) Close() error                           { return nil }

func (f *fakeStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

func TestTwoTier_WriteReachesBothTiers(t *testing.T) {
	store := newFakeStore()
	c := NewTwoTier(NewMemory(10, time.Hour), store)

	c.Put("k1", goodResult("Alpha"))

	_, ok := c.Get(context.Background(), "k1")
	assert.True(t, ok, "memory tier serves immediately")
	require.Eventually(t, func() bool { return store.has("k1") },
		time.Second, 10*time.Millisecond, "background write lands in the store")
}

func TestTwoTier_PersistentHitPromotesToMemory(t *testing.T) {
	store := newFakeStore()
	store.data["k1"] = goodResult("Alpha")
	memory := NewMemory(10, time.Hour)
	c := NewTwoTier(memory, store)

	got, ok := c.Get(context.Background(), "k1")
	require.True(t, ok)
	assert.Equal(t, "Alpha", got.Papers[0].Title)

	_, ok = memory.Get("k1")
	assert.True(t, ok, "hit promoted into the memory tier")
	assert.Equal(t, int64(1), c.Stats()["persistent_hits"])
}

func TestTwoTier_StoreErrorDegradesToMiss(t *testing.T) {
	store := newFakeStore()
	store.failAll = true
	c := NewTwoTier(NewMemory(10, time.Hour), store)

	_, ok := c.Get(context.Background(), "k1")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats()["store_errors"])
}

func TestTwoTier_AllFailedEmptyRunNotStored(t *testing.T) {
	store := newFakeStore()
	c := NewTwoTier(NewMemory(10, time.Hour), store)

	failed := &models.UnifiedDiscoveryResult{
		Papers: []models.DiscoveredPaper{},
		Metadata: models.SynthesisMetadata{
			FailedSources: []models.DiscoverySource{
				models.SourceCitationRegistry,
				models.SourceSemanticCorpus,
			},
		},
	}
	require.False(t, failed.Cacheable())
	c.Put("k1", failed)

	_, ok := c.Get(context.Background(), "k1")
	assert.False(t, ok)
	assert.False(t, store.has("k1"))
}

func TestTwoTier_PartialFailureWithPapersIsStored(t *testing.T) {
	c := NewTwoTier(NewMemory(10, time.Hour), nil)

	partial := goodResult("Alpha")
	partial.Metadata.FailedSources = []models.DiscoverySource{models.SourceTrendAnalyzer}
	require.True(t, partial.Cacheable())

	c.Put("k1", partial)
	_, ok := c.Get(context.Background(), "k1")
	assert.True(t, ok)
}

func TestTwoTier_NilStoreIsMemoryOnly(t *testing.T) {
	c := NewTwoTier(NewMemory(10, time.Hour), nil)

	c.Put("k1", goodResult("Alpha"))
	_, ok := c.Get(context.Background(), "k1")
	assert.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, false, stats["persistent_enabled"])
	assert.NoError(t, c.Close())
}

func TestTwoTier_Invalidate(t *testing.T) {
	store := newFakeStore()
	c := NewTwoTier(NewMemory(10, time.Hour), store)

	c.Put("k1", goodResult("Alpha"))
	require.Eventually(t, func() bool { return store.has("k1") }, time.Second, 10*time.Millisecond)

	c.Invalidate(context.Background(), "k1")
	_, ok := c.Get(context.Background(), "k1")
	assert.False(t, ok)
	assert.False(t, store.has("k1"))
}
