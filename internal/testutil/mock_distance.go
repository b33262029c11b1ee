package testutil

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/paulmach/orb"

	"walk-router/internal/database"
	"walk-router/internal/models"
	"walk-router/internal/routegraph"
)

// RouteCall tracks a call to the path finder
type RouteCall struct {
	Start                   orb.Point
	End                     orb.Point
	TechnicalAllowedAtStart bool
}

// MockPathFinder is a mock implementation for testing.
// It answers with straight lines and scaled Euclidean distances.
type MockPathFinder struct {
	ScaleFactor float64
	Overrides   map[string]float64

	mu    sync.Mutex
	Calls []RouteCall
}

func NewMockPathFinder() *MockPathFinder {
	return &MockPathFinder{
		ScaleFactor: 111000, // 1 degree ≈ 111km in meters
		Overrides:   make(map[string]float64),
	}
}

func (m *MockPathFinder) makeKey(start, end orb.Point) string {
	return fmt.Sprintf("%.5f,%.5f->%.5f,%.5f", start.Lat(), start.Lon(), end.Lat(), end.Lon())
}

// SetDistance sets a custom distance for a directed pair. math.Inf(1)
// makes the pair unreachable.
func (m *MockPathFinder) SetDistance(origin, dest models.Coordinates, distMeters float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Overrides[m.makeKey(origin.Point(), dest.Point())] = distMeters
}

// Route returns [start, end] with their scaled distance
func (m *MockPathFinder) Route(ctx context.Context, start *orb.Point, end orb.Point, technicalAllowedAtStart, technicalAllowedAtEnd bool) (routegraph.Route, error) {
	if err := ctx.Err(); err != nil {
		return routegraph.Route{}, err
	}
	if start == nil || *start == end {
		return routegraph.Route{Points: []orb.Point{end}, Found: true}, nil
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, RouteCall{Start: *start, End: end, TechnicalAllowedAtStart: technicalAllowedAtStart})
	dist, ok := m.Overrides[m.makeKey(*start, end)]
	m.mu.Unlock()

	if !ok {
		dx := end.X() - start.X()
		dy := end.Y() - start.Y()
		dist = math.Sqrt(dx*dx+dy*dy) * m.ScaleFactor
	}
	if math.IsInf(dist, 1) {
		return routegraph.Route{Points: []orb.Point{end}, DistanceMeters: dist}, nil
	}
	return routegraph.Route{Points: []orb.Point{*start, end}, DistanceMeters: dist, Found: true}, nil
}

// CallCount returns the number of non-trivial route queries
func (m *MockPathFinder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// ResetCalls clears the recorded calls
func (m *MockPathFinder) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// MockRegionDistances is a mock implementation of RegionDistanceRepository for testing
type MockRegionDistances struct {
	mu      sync.Mutex
	entries map[string]models.RegionDistanceEntry
	Err     error
}

func NewMockRegionDistances() *MockRegionDistances {
	return &MockRegionDistances{entries: make(map[string]models.RegionDistanceEntry)}
}

func (c *MockRegionDistances) Get(ctx context.Context, mapVersion, a, b string) (*models.RegionDistanceEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if entry, ok := c.entries[models.RegionPairKey(mapVersion, a, b)]; ok {
		return &entry, nil
	}
	return nil, nil
}

func (c *MockRegionDistances) GetBatch(ctx context.Context, mapVersion string, pairs []database.RegionPair) (map[string]*models.RegionDistanceEntry, error) {
	result := make(map[string]*models.RegionDistanceEntry)
	for _, pair := range pairs {
		entry, err := c.Get(ctx, mapVersion, pair.A, pair.B)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			result[models.RegionPairKey(mapVersion, pair.A, pair.B)] = entry
		}
	}
	return result, nil
}

func (c *MockRegionDistances) Set(ctx context.Context, entry *models.RegionDistanceEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.entries[models.RegionPairKey(entry.MapVersion, entry.RegionA, entry.RegionB)] = *entry
	return nil
}

func (c *MockRegionDistances) SetBatch(ctx context.Context, entries []models.RegionDistanceEntry) error {
	for i := range entries {
		if err := c.Set(ctx, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *MockRegionDistances) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]models.RegionDistanceEntry)
	return nil
}

// Count returns the number of entries in the cache
func (c *MockRegionDistances) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
