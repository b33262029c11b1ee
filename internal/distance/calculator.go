package distance

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"golang.org/x/exp/slog"

	"walk-router/internal/models"
	"walk-router/internal/routegraph"
)

// DefaultWalkingSpeed is the pace used for duration estimates, in m/s
const DefaultWalkingSpeed = 1.3

// DistanceResult contains the result of a distance calculation.
// Unreachable destinations report +Inf for both values.
type DistanceResult struct {
	DistanceMeters float64
	DurationSecs   float64
}

// Reachable reports whether the destination could be reached
func (r DistanceResult) Reachable() bool {
	return !math.IsInf(r.DistanceMeters, 1)
}

// DistanceCalculator provides distance calculations between coordinates
type DistanceCalculator interface {
	GetDistance(ctx context.Context, origin, dest models.Coordinates) (*DistanceResult, error)
	GetDistanceMatrix(ctx context.Context, points []models.Coordinates) ([][]DistanceResult, error)
	GetDistancesFromPoint(ctx context.Context, origin models.Coordinates, destinations []models.Coordinates) ([]DistanceResult, error)
	PrewarmCache(ctx context.Context, points []models.Coordinates) error
}

// PathFinder answers walking path queries. routegraph.Service implements it.
type PathFinder interface {
	Route(ctx context.Context, start *orb.Point, end orb.Point, technicalAllowedAtStart, technicalAllowedAtEnd bool) (routegraph.Route, error)
}

// ErrDistanceCalculationFailed is returned when the path query itself fails
type ErrDistanceCalculationFailed struct {
	Origin models.Coordinates
	Dest   models.Coordinates
	Reason string
}

func (e *ErrDistanceCalculationFailed) Error() string {
	return fmt.Sprintf("distance calculation failed: %s", e.Reason)
}

type pointPair struct {
	origin, dest orb.Point
}

// GraphCalculator computes walking distances on the route graph and
// memoizes them for its own lifetime. Create one per optimization run.
type GraphCalculator struct {
	paths        PathFinder
	walkingSpeed float64

	mu         sync.Mutex
	cache      map[pointPair]DistanceResult
	permissive map[orb.Point]bool
}

// NewGraphCalculator creates a calculator with an empty point-pair cache
func NewGraphCalculator(paths PathFinder, walkingSpeedMps float64) *GraphCalculator {
	if walkingSpeedMps <= 0 {
		walkingSpeedMps = DefaultWalkingSpeed
	}
	return &GraphCalculator{
		paths:        paths,
		walkingSpeed: walkingSpeedMps,
		cache:        make(map[pointPair]DistanceResult),
		permissive:   make(map[orb.Point]bool),
	}
}

// AllowTechnicalFrom lets paths starting at the given points begin on
// technical roads, as when leaving the walker's live position
func (c *GraphCalculator) AllowTechnicalFrom(points ...models.Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range points {
		c.permissive[p.Point()] = true
	}
}

func samePoint(a, b models.Coordinates) bool {
	return models.RoundCoordinate(a.Lat) == models.RoundCoordinate(b.Lat) &&
		models.RoundCoordinate(a.Lng) == models.RoundCoordinate(b.Lng)
}

func (c *GraphCalculator) result(distance float64) DistanceResult {
	return DistanceResult{DistanceMeters: distance, DurationSecs: distance / c.walkingSpeed}
}

// Path returns the walking path between two points with its length
func (c *GraphCalculator) Path(ctx context.Context, origin, dest models.Coordinates) ([]models.Coordinates, *DistanceResult, error) {
	start := origin.Point()

	c.mu.Lock()
	permissive := c.permissive[start]
	c.mu.Unlock()

	route, err := c.paths.Route(ctx, &start, dest.Point(), permissive, false)
	if err != nil {
		return nil, nil, &ErrDistanceCalculationFailed{Origin: origin, Dest: dest, Reason: err.Error()}
	}

	res := c.result(route.DistanceMeters)
	if !route.Found {
		res = c.result(math.Inf(1))
	}

	c.mu.Lock()
	c.cache[pointPair{origin: start, dest: dest.Point()}] = res
	c.mu.Unlock()

	return models.CoordinatesFromPath(route.Points), &res, nil
}

func (c *GraphCalculator) GetDistance(ctx context.Context, origin, dest models.Coordinates) (*DistanceResult, error) {
	if samePoint(origin, dest) {
		return &DistanceResult{}, nil
	}

	key := pointPair{origin: origin.Point(), dest: dest.Point()}
	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return &cached, nil
	}

	_, res, err := c.Path(ctx, origin, dest)
	if err != nil {
		return nil, err
	}
	if !res.Reachable() {
		slog.Debug("[DISTANCE] destination unreachable",
			"origin", fmt.Sprintf("(%.6f,%.6f)", origin.Lat, origin.Lng),
			"dest", fmt.Sprintf("(%.6f,%.6f)", dest.Lat, dest.Lng))
	}
	return res, nil
}

func (c *GraphCalculator) GetDistanceMatrix(ctx context.Context, points []models.Coordinates) ([][]DistanceResult, error) {
	n := len(points)
	matrix := make([][]DistanceResult, n)
	for i := range matrix {
		matrix[i] = make([]DistanceResult, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			res, err := c.GetDistance(ctx, points[i], points[j])
			if err != nil {
				return nil, err
			}
			matrix[i][j] = *res
		}
	}

	slog.Debug("[DISTANCE] matrix computed", "points", n, "cached_pairs", c.CacheSize())
	return matrix, nil
}

func (c *GraphCalculator) GetDistancesFromPoint(ctx context.Context, origin models.Coordinates, destinations []models.Coordinates) ([]DistanceResult, error) {
	results := make([]DistanceResult, len(destinations))
	for i, dest := range destinations {
		res, err := c.GetDistance(ctx, origin, dest)
		if err != nil {
			return nil, err
		}
		results[i] = *res
	}
	return results, nil
}

func (c *GraphCalculator) PrewarmCache(ctx context.Context, points []models.Coordinates) error {
	_, err := c.GetDistanceMatrix(ctx, points)
	return err
}

// CacheSize returns the number of memoized point pairs
func (c *GraphCalculator) CacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
