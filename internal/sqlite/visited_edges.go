package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"walk-router/internal/models"
)

type visitedEdgeRepository struct {
	store *Store
}

func (r *visitedEdgeRepository) List(ctx context.Context) ([]models.VisitedEdge, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT from_lat, from_lng, to_lat, to_lng, fully, intervals
		FROM visited_edges
		ORDER BY from_lng, from_lat, to_lng, to_lat`)
	if err != nil {
		return nil, fmt.Errorf("failed to list visited edges: %w", err)
	}
	defer rows.Close()

	edges := []models.VisitedEdge{}
	for rows.Next() {
		var (
			e         models.VisitedEdge
			intervals string
		)
		if err := rows.Scan(&e.From.Lat, &e.From.Lng, &e.To.Lat, &e.To.Lng, &e.Fully, &intervals); err != nil {
			return nil, fmt.Errorf("failed to scan visited edge: %w", err)
		}
		if err := json.Unmarshal([]byte(intervals), &e.Intervals); err != nil {
			return nil, fmt.Errorf("failed to decode intervals: %w", err)
		}
		if len(e.Intervals) == 0 {
			e.Intervals = nil
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (r *visitedEdgeRepository) Save(ctx context.Context, edges []models.VisitedEdge) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM visited_edges"); err != nil {
		return fmt.Errorf("failed to clear visited edges: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO visited_edges
		(from_lat, from_lng, to_lat, to_lng, fully, intervals)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		intervals := e.Intervals
		if intervals == nil {
			intervals = []models.Interval{}
		}
		encoded, err := json.Marshal(intervals)
		if err != nil {
			return fmt.Errorf("failed to encode intervals: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, e.From.Lat, e.From.Lng, e.To.Lat, e.To.Lng, e.Fully, string(encoded)); err != nil {
			return fmt.Errorf("failed to insert visited edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *visitedEdgeRepository) Clear(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM visited_edges"); err != nil {
		return fmt.Errorf("failed to clear visited edges: %w", err)
	}
	return nil
}
