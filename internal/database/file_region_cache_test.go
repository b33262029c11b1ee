package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walk-router/internal/models"
)

func newTestRegionCache(t *testing.T) (*FileRegionCache, string) {
	t.Helper()
	cachePath := filepath.Join(t.TempDir(), "cache", RegionCacheFileName)
	cache, err := NewFileRegionCache(cachePath)
	require.NoError(t, err)
	return cache, cachePath
}

func TestRegionCache_SymmetricLookup(t *testing.T) {
	cache, _ := newTestRegionCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &models.RegionDistanceEntry{
		RegionA: "lions", RegionB: "aquarium", MapVersion: "v1", DistanceMeters: 420,
	}))

	forward, err := cache.Get(ctx, "v1", "lions", "aquarium")
	require.NoError(t, err)
	require.NotNil(t, forward)
	assert.Equal(t, 420.0, forward.DistanceMeters)

	backward, err := cache.Get(ctx, "v1", "aquarium", "lions")
	require.NoError(t, err)
	require.NotNil(t, backward)
	assert.Equal(t, "aquarium", backward.RegionA, "entries are stored in sorted order")
}

func TestRegionCache_ScopedByMapVersion(t *testing.T) {
	cache, _ := newTestRegionCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &models.RegionDistanceEntry{
		RegionA: "a", RegionB: "b", MapVersion: "v1", DistanceMeters: 10,
	}))

	entry, err := cache.Get(ctx, "v2", "a", "b")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRegionCache_SetBatchOverwrites(t *testing.T) {
	cache, _ := newTestRegionCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetBatch(ctx, []models.RegionDistanceEntry{
		{RegionA: "a", RegionB: "b", MapVersion: "v1", DistanceMeters: 10},
		{RegionA: "b", RegionB: "c", MapVersion: "v1", DistanceMeters: 20},
	}))
	require.NoError(t, cache.SetBatch(ctx, []models.RegionDistanceEntry{
		{RegionA: "b", RegionB: "a", MapVersion: "v1", DistanceMeters: 15},
	}))

	assert.Equal(t, 2, cache.Count())

	batch, err := cache.GetBatch(ctx, "v1", []RegionPair{{A: "a", B: "b"}, {A: "c", B: "b"}, {A: "a", B: "c"}})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, 15.0, batch[models.RegionPairKey("v1", "a", "b")].DistanceMeters)
	assert.Equal(t, 20.0, batch[models.RegionPairKey("v1", "b", "c")].DistanceMeters)
}

func TestRegionCache_PersistsAcrossReopen(t *testing.T) {
	cache, cachePath := newTestRegionCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &models.RegionDistanceEntry{
		RegionA: "a", RegionB: "b", MapVersion: "v1", DistanceMeters: 99,
	}))

	reopened, err := NewFileRegionCache(cachePath)
	require.NoError(t, err)

	entry, err := reopened.Get(ctx, "v1", "b", "a")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 99.0, entry.DistanceMeters)
}

func TestRegionCache_Clear(t *testing.T) {
	cache, cachePath := newTestRegionCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &models.RegionDistanceEntry{
		RegionA: "a", RegionB: "b", MapVersion: "v1", DistanceMeters: 1,
	}))
	require.NoError(t, cache.Clear(ctx))

	assert.Equal(t, 0, cache.Count())
	reopened, err := NewFileRegionCache(cachePath)
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Count())
}
