package distance

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walk-router/internal/database"
	"walk-router/internal/models"
	"walk-router/internal/testutil"
)

func TestRegionCache_SetAndGetSymmetric(t *testing.T) {
	repo := testutil.NewMockRegionDistances()
	cache := NewRegionCache(repo, "v1")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "b", "a", 42))

	d, ok := cache.Get(ctx, "a", "b")
	require.True(t, ok)
	assert.Equal(t, 42.0, d)
	assert.Equal(t, 1, repo.Count())

	stored, err := repo.Get(ctx, "v1", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a", stored.RegionA)
}

func TestRegionCache_FallsBackToStore(t *testing.T) {
	repo := testutil.NewMockRegionDistances()
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, &models.RegionDistanceEntry{
		RegionA: "a", RegionB: "b", MapVersion: "v1", DistanceMeters: 7,
	}))
	cache := NewRegionCache(repo, "v1")

	d, ok := cache.Get(ctx, "b", "a")

	require.True(t, ok)
	assert.Equal(t, 7.0, d)
	assert.Equal(t, 1, cache.Len())
}

func TestRegionCache_StoreErrorsAreMisses(t *testing.T) {
	repo := testutil.NewMockRegionDistances()
	repo.Err = errors.New("disk on fire")
	cache := NewRegionCache(repo, "v1")

	_, ok := cache.Get(context.Background(), "a", "b")

	assert.False(t, ok)
}

func TestRegionCache_UnreachableStaysInMemory(t *testing.T) {
	repo := testutil.NewMockRegionDistances()
	cache := NewRegionCache(repo, "v1")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", "b", math.Inf(1)))

	d, ok := cache.Get(ctx, "a", "b")
	require.True(t, ok)
	assert.True(t, math.IsInf(d, 1))
	assert.Equal(t, 0, repo.Count())
}

func TestRegionCache_VersionChangeDropsSession(t *testing.T) {
	cache := NewRegionCache(nil, "v1")
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "a", "b", 1))

	cache.SetVersion("v2")

	_, ok := cache.Get(ctx, "a", "b")
	assert.False(t, ok)
	assert.Equal(t, "v2", cache.Version())
	assert.Equal(t, 0, cache.Len())
}

func TestRegionCache_Warm(t *testing.T) {
	repo := testutil.NewMockRegionDistances()
	ctx := context.Background()
	require.NoError(t, repo.SetBatch(ctx, []models.RegionDistanceEntry{
		{RegionA: "a", RegionB: "b", MapVersion: "v1", DistanceMeters: 1},
		{RegionA: "a", RegionB: "c", MapVersion: "v1", DistanceMeters: 2},
		{RegionA: "a", RegionB: "b", MapVersion: "v0", DistanceMeters: 3},
	}))
	cache := NewRegionCache(repo, "v1")

	require.NoError(t, cache.Warm(ctx, []database.RegionPair{{A: "a", B: "b"}, {A: "c", B: "a"}, {A: "b", B: "c"}}))

	assert.Equal(t, 2, cache.Len())
	d, ok := cache.Get(ctx, "b", "a")
	require.True(t, ok)
	assert.Equal(t, 1.0, d)
}
