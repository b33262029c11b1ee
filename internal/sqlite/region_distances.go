package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"walk-router/internal/database"
	"walk-router/internal/models"
)

type regionDistanceRepository struct {
	store *Store
}

const regionDistanceQuery = `SELECT map_version, region_a, region_b, distance_meters
	FROM region_distances
	WHERE map_version = ? AND region_a = ? AND region_b = ?`

const regionDistanceUpsert = `INSERT OR REPLACE INTO region_distances
	(map_version, region_a, region_b, distance_meters)
	VALUES (?, ?, ?, ?)`

func scanRegionDistance(row *sql.Row) (*models.RegionDistanceEntry, error) {
	var entry models.RegionDistanceEntry
	err := row.Scan(&entry.MapVersion, &entry.RegionA, &entry.RegionB, &entry.DistanceMeters)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *regionDistanceRepository) Get(ctx context.Context, mapVersion, a, b string) (*models.RegionDistanceEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	first, second := models.RegionPair(a, b)
	entry, err := scanRegionDistance(r.store.db.QueryRowContext(ctx, regionDistanceQuery, mapVersion, first, second))
	if err != nil {
		return nil, fmt.Errorf("failed to get region distance: %w", err)
	}
	return entry, nil
}

func (r *regionDistanceRepository) GetBatch(ctx context.Context, mapVersion string, pairs []database.RegionPair) (map[string]*models.RegionDistanceEntry, error) {
	result := make(map[string]*models.RegionDistanceEntry)
	if len(pairs) == 0 {
		return result, nil
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stmt, err := r.store.db.PrepareContext(ctx, regionDistanceQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare batch query: %w", err)
	}
	defer stmt.Close()

	for _, pair := range pairs {
		first, second := models.RegionPair(pair.A, pair.B)

		var entry models.RegionDistanceEntry
		err := stmt.QueryRowContext(ctx, mapVersion, first, second).Scan(
			&entry.MapVersion, &entry.RegionA, &entry.RegionB, &entry.DistanceMeters,
		)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query batch entry: %w", err)
		}

		result[models.RegionPairKey(mapVersion, first, second)] = &entry
	}

	return result, nil
}

func (r *regionDistanceRepository) Set(ctx context.Context, entry *models.RegionDistanceEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	first, second := models.RegionPair(entry.RegionA, entry.RegionB)
	_, err := r.store.db.ExecContext(ctx, regionDistanceUpsert, entry.MapVersion, first, second, entry.DistanceMeters)
	if err != nil {
		return fmt.Errorf("failed to set region distance: %w", err)
	}
	return nil
}

func (r *regionDistanceRepository) SetBatch(ctx context.Context, entries []models.RegionDistanceEntry) error {
	if len(entries) == 0 {
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, regionDistanceUpsert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		first, second := models.RegionPair(entry.RegionA, entry.RegionB)
		if _, err := stmt.ExecContext(ctx, entry.MapVersion, first, second, entry.DistanceMeters); err != nil {
			return fmt.Errorf("failed to insert batch entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *regionDistanceRepository) Clear(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM region_distances"); err != nil {
		return fmt.Errorf("failed to clear region distances: %w", err)
	}
	return nil
}
