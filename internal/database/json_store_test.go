package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walk-router/internal/models"
)

func setupTestJSONStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	dir := t.TempDir()
	cache, err := NewFileRegionCache(filepath.Join(dir, RegionCacheFileName))
	require.NoError(t, err)
	dataPath := filepath.Join(dir, DataFileName)
	store, err := NewJSONStore(dataPath, cache)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, dataPath
}

func sampleEdges() []models.VisitedEdge {
	return []models.VisitedEdge{
		{
			From:  models.Coordinates{Lat: 52.5, Lng: 13.41},
			To:    models.Coordinates{Lat: 52.5, Lng: 13.40},
			Fully: true,
		},
		{
			From:      models.Coordinates{Lat: 52.51, Lng: 13.40},
			To:        models.Coordinates{Lat: 52.50, Lng: 13.40},
			Intervals: []models.Interval{{Start: 0.1, End: 0.4}},
		},
	}
}

func TestJSONStore_CreatesFile(t *testing.T) {
	store, dataPath := setupTestJSONStore(t)

	_, err := os.Stat(dataPath)
	require.NoError(t, err)
	assert.NoError(t, store.HealthCheck(context.Background()))
	assert.NotNil(t, store.RegionDistances())

	edges, err := store.VisitedEdges().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestJSONStore_VisitedEdgesRoundTrip(t *testing.T) {
	store, dataPath := setupTestJSONStore(t)
	ctx := context.Background()

	require.NoError(t, store.VisitedEdges().Save(ctx, sampleEdges()))

	reopened, err := NewJSONStore(dataPath, store.RegionDistances())
	require.NoError(t, err)
	edges, err := reopened.VisitedEdges().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleEdges(), edges)
}

func TestJSONStore_ListReturnsCopy(t *testing.T) {
	store, _ := setupTestJSONStore(t)
	ctx := context.Background()
	require.NoError(t, store.VisitedEdges().Save(ctx, sampleEdges()))

	edges, err := store.VisitedEdges().List(ctx)
	require.NoError(t, err)
	edges[0].Fully = false

	again, err := store.VisitedEdges().List(ctx)
	require.NoError(t, err)
	assert.True(t, again[0].Fully)
}

func TestJSONStore_ClearVisitedEdges(t *testing.T) {
	store, _ := setupTestJSONStore(t)
	ctx := context.Background()
	require.NoError(t, store.VisitedEdges().Save(ctx, sampleEdges()))

	require.NoError(t, store.VisitedEdges().Clear(ctx))

	edges, err := store.VisitedEdges().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestJSONStore_RejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, DataFileName)
	require.NoError(t, os.WriteFile(dataPath, []byte("{not json"), 0600))

	_, err := NewJSONStore(dataPath, nil)
	assert.Error(t, err)
}
