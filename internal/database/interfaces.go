package database

import (
	"context"

	"walk-router/internal/models"
)

// DataStore is the interface for data persistence
type DataStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	RegionDistances() RegionDistanceRepository
	VisitedEdges() VisitedEdgeRepository
}

// RegionPair names two regions whose walking distance is cached
type RegionPair struct {
	A, B string
}

// RegionDistanceRepository handles region-pair distance persistence.
// Entries are symmetric and scoped to a map data version.
type RegionDistanceRepository interface {
	Get(ctx context.Context, mapVersion, a, b string) (*models.RegionDistanceEntry, error)
	// GetBatch returns the cached entries keyed by models.RegionPairKey
	GetBatch(ctx context.Context, mapVersion string, pairs []RegionPair) (map[string]*models.RegionDistanceEntry, error)
	Set(ctx context.Context, entry *models.RegionDistanceEntry) error
	SetBatch(ctx context.Context, entries []models.RegionDistanceEntry) error
	Clear(ctx context.Context) error
}

// VisitedEdgeRepository handles visited edge persistence
type VisitedEdgeRepository interface {
	List(ctx context.Context) ([]models.VisitedEdge, error)
	// Save replaces the stored edges
	Save(ctx context.Context, edges []models.VisitedEdge) error
	Clear(ctx context.Context) error
}
