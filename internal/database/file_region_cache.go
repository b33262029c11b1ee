package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/exp/slog"

	"walk-router/internal/models"
)

// FileRegionCacheData represents the structure of the cache file
type FileRegionCacheData struct {
	Entries []models.RegionDistanceEntry `json:"entries"`
}

// FileRegionCache is a file-based implementation of RegionDistanceRepository
type FileRegionCache struct {
	filePath string
	data     *FileRegionCacheData
	index    map[string]int // O(1) lookup by region pair key (maps to index in Entries slice)
	mu       sync.RWMutex
}

// NewFileRegionCache opens or creates the cache file at filePath
func NewFileRegionCache(filePath string) (*FileRegionCache, error) {
	slog.Info("[CACHE] using region distance cache file", "path", filePath)

	cache := &FileRegionCache{
		filePath: filePath,
		data:     &FileRegionCacheData{Entries: []models.RegionDistanceEntry{}},
		index:    make(map[string]int),
	}

	if err := cache.load(); err != nil {
		return nil, err
	}

	return cache, nil
}

func (c *FileRegionCache) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		c.data = &FileRegionCacheData{Entries: []models.RegionDistanceEntry{}}
		return c.saveUnlocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	if err := json.Unmarshal(data, c.data); err != nil {
		return fmt.Errorf("failed to parse cache file: %w", err)
	}

	if c.data.Entries == nil {
		c.data.Entries = []models.RegionDistanceEntry{}
	}

	c.rebuildIndex()

	slog.Info("[CACHE] loaded region distance cache", "entries", len(c.data.Entries))
	return nil
}

func (c *FileRegionCache) saveUnlocked() error {
	data, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := writeFileAtomic(c.filePath, data); err != nil {
		return fmt.Errorf("failed to save cache file: %w", err)
	}
	return nil
}

func (c *FileRegionCache) Get(ctx context.Context, mapVersion, a, b string) (*models.RegionDistanceEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if idx, ok := c.index[models.RegionPairKey(mapVersion, a, b)]; ok {
		// Return a copy to prevent callers from modifying cache data without locks
		entryCopy := c.data.Entries[idx]
		return &entryCopy, nil
	}
	return nil, nil
}

func (c *FileRegionCache) GetBatch(ctx context.Context, mapVersion string, pairs []RegionPair) (map[string]*models.RegionDistanceEntry, error) {
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

func (c *FileRegionCache) Set(ctx context.Context, entry *models.RegionDistanceEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.putUnlocked(*entry)
	return c.saveUnlocked()
}

func (c *FileRegionCache) SetBatch(ctx context.Context, entries []models.RegionDistanceEntry) error {
	if len(entries) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range entries {
		c.putUnlocked(entry)
	}
	return c.saveUnlocked()
}

func (c *FileRegionCache) putUnlocked(entry models.RegionDistanceEntry) {
	entry.RegionA, entry.RegionB = models.RegionPair(entry.RegionA, entry.RegionB)
	key := models.RegionPairKey(entry.MapVersion, entry.RegionA, entry.RegionB)

	if idx, ok := c.index[key]; ok {
		c.data.Entries[idx] = entry
		return
	}
	c.data.Entries = append(c.data.Entries, entry)
	c.index[key] = len(c.data.Entries) - 1
}

func (c *FileRegionCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data.Entries = []models.RegionDistanceEntry{}
	c.index = make(map[string]int)
	return c.saveUnlocked()
}

// Count returns the number of cached pairs
func (c *FileRegionCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data.Entries)
}

// rebuildIndex creates the index map from the current entries slice.
// Must be called with the mutex already held.
func (c *FileRegionCache) rebuildIndex() {
	c.index = make(map[string]int)
	for i, e := range c.data.Entries {
		c.index[models.RegionPairKey(e.MapVersion, e.RegionA, e.RegionB)] = i
	}
}
