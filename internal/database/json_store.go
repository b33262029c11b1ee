package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"walk-router/internal/models"
)

// JSONData represents the structure of the JSON file
type JSONData struct {
	VisitedEdges []models.VisitedEdge `json:"visited_edges"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// JSONStore is a JSON file-based data store. Region distances live in a
// separate cache file.
type JSONStore struct {
	filePath string
	data     *JSONData
	mu       sync.RWMutex

	regionDistanceRepository RegionDistanceRepository
	visitedEdgeRepository    VisitedEdgeRepository
}

func (s *JSONStore) RegionDistances() RegionDistanceRepository { return s.regionDistanceRepository }
func (s *JSONStore) VisitedEdges() VisitedEdgeRepository       { return s.visitedEdgeRepository }

// NewJSONStore creates a JSON-based data store at filePath
func NewJSONStore(filePath string, regionCache RegionDistanceRepository) (*JSONStore, error) {
	slog.Info("[STORE] using JSON data file", "path", filePath)

	store := &JSONStore{
		filePath: filePath,
		data:     &JSONData{},
	}

	if err := store.load(); err != nil {
		return nil, err
	}

	store.regionDistanceRepository = regionCache
	store.visitedEdgeRepository = &jsonVisitedEdgeRepository{store: store}

	return store, nil
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.data = &JSONData{VisitedEdges: []models.VisitedEdge{}}
		return s.saveUnlocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}

	if err := json.Unmarshal(data, s.data); err != nil {
		return fmt.Errorf("failed to parse data file: %w", err)
	}

	if s.data.VisitedEdges == nil {
		s.data.VisitedEdges = []models.VisitedEdge{}
	}

	slog.Info("[STORE] loaded data", "visited_edges", len(s.data.VisitedEdges))
	return nil
}

func (s *JSONStore) saveUnlocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	return writeFileAtomic(s.filePath, data)
}

// Close is a no-op for JSON store (data is saved after each operation)
func (s *JSONStore) Close() error {
	return nil
}

// HealthCheck always returns nil for JSON store
func (s *JSONStore) HealthCheck(ctx context.Context) error {
	return nil
}

type jsonVisitedEdgeRepository struct {
	store *JSONStore
}

func (r *jsonVisitedEdgeRepository) List(ctx context.Context) ([]models.VisitedEdge, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]models.VisitedEdge, len(r.store.data.VisitedEdges))
	copy(result, r.store.data.VisitedEdges)
	return result, nil
}

func (r *jsonVisitedEdgeRepository) Save(ctx context.Context, edges []models.VisitedEdge) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.data.VisitedEdges = append([]models.VisitedEdge{}, edges...)
	r.store.data.UpdatedAt = time.Now().UTC()
	return r.store.saveUnlocked()
}

func (r *jsonVisitedEdgeRepository) Clear(ctx context.Context) error {
	return r.Save(ctx, nil)
}
