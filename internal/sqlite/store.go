package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/exp/slog"

	"walk-router/internal/database"

	_ "modernc.org/sqlite"
)

const (
	DefaultDBFileName = "data.db"
	schemaVersion     = 2
)

// Store is a SQLite-based data store implementing database.DataStore
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex

	regionDistanceRepo database.RegionDistanceRepository
	visitedEdgeRepo    database.VisitedEdgeRepository
}

// New creates a new SQLite store at the specified path. ":memory:" opens a
// private in-memory database.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	slog.Info("[SQLITE] opening database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	store.regionDistanceRepo = &regionDistanceRepository{store: store}
	store.visitedEdgeRepo = &visitedEdgeRepository{store: store}

	return store, nil
}

// GetDBPath returns the current database file path
func (s *Store) GetDBPath() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist, create everything
		return s.createSchema()
	}

	if version < schemaVersion {
		return s.runMigrations(version)
	}
	return nil
}

const tablesSQL = `
	-- Region pair walking distances, one row per unordered pair and map version
	CREATE TABLE IF NOT EXISTS region_distances (
		map_version TEXT NOT NULL,
		region_a TEXT NOT NULL,
		region_b TEXT NOT NULL,
		distance_meters REAL NOT NULL,
		cached_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (map_version, region_a, region_b)
	);

	-- Visited edges keyed by their canonical endpoints
	CREATE TABLE IF NOT EXISTS visited_edges (
		from_lat REAL NOT NULL,
		from_lng REAL NOT NULL,
		to_lat REAL NOT NULL,
		to_lng REAL NOT NULL,
		fully INTEGER NOT NULL DEFAULT 0,
		intervals TEXT NOT NULL DEFAULT '[]',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (from_lat, from_lng, to_lat, to_lng)
	);
`

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);
	` + tablesSQL

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	slog.Info("[SQLITE] schema initialized", "version", schemaVersion)
	return nil
}

func (s *Store) runMigrations(fromVersion int) error {
	if fromVersion < 2 {
		// version 1 stored point-pair distances that do not survive a map change
		if _, err := s.db.Exec("DROP TABLE IF EXISTS distance_cache"); err != nil {
			return fmt.Errorf("failed to drop legacy distance cache: %w", err)
		}
		if _, err := s.db.Exec(tablesSQL); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	_, err := s.db.Exec("UPDATE schema_version SET version = ?", schemaVersion)
	if err == nil {
		slog.Info("[SQLITE] schema migrated", "from", fromVersion, "to", schemaVersion)
	}
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		// Checkpoint WAL before closing
		s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// HealthCheck verifies the database connection
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Repository accessors
func (s *Store) RegionDistances() database.RegionDistanceRepository { return s.regionDistanceRepo }
func (s *Store) VisitedEdges() database.VisitedEdgeRepository       { return s.visitedEdgeRepo }
