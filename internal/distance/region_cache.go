package distance

import (
	"context"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/exp/slog"

	"walk-router/internal/database"
	"walk-router/internal/models"
)

var regionCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "walkrouter_region_cache_total",
	Help: "Region pair distance lookups by result",
}, []string{"result"}) // "memory", "store" or "miss"

// RegionCache holds region pair distances for the whole session, backed by
// a persistent repository. Entries belong to one map data version.
type RegionCache struct {
	repo database.RegionDistanceRepository

	mu      sync.RWMutex
	version string
	session map[string]float64
}

// NewRegionCache creates a cache for the given map version. repo may be nil
// for a memory-only cache.
func NewRegionCache(repo database.RegionDistanceRepository, mapVersion string) *RegionCache {
	return &RegionCache{
		repo:    repo,
		version: mapVersion,
		session: make(map[string]float64),
	}
}

// Version returns the map version entries are scoped to
func (c *RegionCache) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// SetVersion switches to another map version and drops session entries
func (c *RegionCache) SetVersion(mapVersion string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version == mapVersion {
		return
	}
	slog.Info("[CACHE] map version changed, dropping region distances",
		"from", c.version, "to", mapVersion, "entries", len(c.session))
	c.version = mapVersion
	c.session = make(map[string]float64)
}

// Get returns the cached distance between two regions
func (c *RegionCache) Get(ctx context.Context, a, b string) (float64, bool) {
	c.mu.RLock()
	version := c.version
	d, ok := c.session[models.RegionPairKey(version, a, b)]
	c.mu.RUnlock()
	if ok {
		regionCacheTotal.WithLabelValues("memory").Inc()
		return d, true
	}

	if c.repo != nil {
		entry, err := c.repo.Get(ctx, version, a, b)
		if err != nil {
			slog.Warn("[CACHE] region distance lookup failed", "a", a, "b", b, "err", err)
		} else if entry != nil {
			c.remember(version, a, b, entry.DistanceMeters)
			regionCacheTotal.WithLabelValues("store").Inc()
			return entry.DistanceMeters, true
		}
	}

	regionCacheTotal.WithLabelValues("miss").Inc()
	return 0, false
}

// Set records a distance. Unreachable pairs stay in memory only.
func (c *RegionCache) Set(ctx context.Context, a, b string, distanceMeters float64) error {
	version := c.Version()
	c.remember(version, a, b, distanceMeters)

	if c.repo == nil || math.IsInf(distanceMeters, 0) || math.IsNaN(distanceMeters) {
		return nil
	}
	first, second := models.RegionPair(a, b)
	return c.repo.Set(ctx, &models.RegionDistanceEntry{
		RegionA:        first,
		RegionB:        second,
		MapVersion:     version,
		DistanceMeters: distanceMeters,
	})
}

// Warm loads the given pairs from the repository in one batch
func (c *RegionCache) Warm(ctx context.Context, pairs []database.RegionPair) error {
	if c.repo == nil || len(pairs) == 0 {
		return nil
	}
	version := c.Version()
	entries, err := c.repo.GetBatch(ctx, version, pairs)
	if err != nil {
		return err
	}
	for _, e := range entries {
		c.remember(version, e.RegionA, e.RegionB, e.DistanceMeters)
	}
	slog.Debug("[CACHE] region distances warmed", "requested", len(pairs), "found", len(entries))
	return nil
}

// Len returns the number of session entries
func (c *RegionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.session)
}

func (c *RegionCache) remember(version, a, b string, d float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.version {
		return
	}
	c.session[models.RegionPairKey(version, a, b)] = d
}
