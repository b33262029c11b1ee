// Package config reads the service configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"

	"walk-router/internal/graph"
	"walk-router/internal/models"
	"walk-router/internal/routing"
	"walk-router/internal/visitation"
)

// ErrUnknownAlgorithm is returned for optimizer expressions that do not parse
var ErrUnknownAlgorithm = routing.ErrUnknownAlgorithm

// Storage drivers
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Map        MapConfig        `yaml:"map"`
	Graph      GraphConfig      `yaml:"graph"`
	Visitation VisitationConfig `yaml:"visitation"`
	Optimizer  OptimizerConfig  `yaml:"optimizer"`
	Routing    RoutingConfig    `yaml:"routing"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	// Path of the database or JSON file; empty uses the app directory
	Path string `yaml:"path"`
}

type MapConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

type GraphConfig struct {
	JunctionToleranceMeters float64 `yaml:"junction_tolerance_meters"`
}

type VisitationConfig struct {
	CornerFillMeters float64    `yaml:"corner_fill_meters"`
	FullCoverage     [2]float64 `yaml:"full_coverage"`
}

type OptimizerConfig struct {
	Algorithm    AlgorithmSpec      `yaml:"algorithm"`
	MaxVariants  int                `yaml:"max_variants"`
	Parallel     bool               `yaml:"parallel"`
	Annealing    AnnealingConfig    `yaml:"annealing"`
	LinKernighan LinKernighanConfig `yaml:"lin_kernighan"`
}

type AnnealingConfig struct {
	InitialTemperature float64 `yaml:"initial_temperature"`
	CoolingRate        float64 `yaml:"cooling_rate"`
	MinTemperature     float64 `yaml:"min_temperature"`
	MaxIterations      int     `yaml:"max_iterations"`
	Seed               int64   `yaml:"seed"`
}

type LinKernighanConfig struct {
	MaxDepth  int `yaml:"max_depth"`
	Neighbors int `yaml:"neighbors"`
}

type RoutingConfig struct {
	WalkingSpeedMps float64 `yaml:"walking_speed_mps"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// AlgorithmSpec is an optimizer expression such as "nn+2opt*lk", checked
// when the config is decoded
type AlgorithmSpec string

func (a AlgorithmSpec) MarshalYAML() (any, error) {
	return string(a), nil
}

func (a *AlgorithmSpec) UnmarshalYAML(value *yaml.Node) error {
	if _, err := routing.ParseStrategy(value.Value, routing.StrategyOptions{}); err != nil {
		return err
	}
	*a = AlgorithmSpec(strings.TrimSpace(value.Value))
	return nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	sa := routing.DefaultAnnealing()
	lk := routing.DefaultLinKernighan()
	return &Config{
		Server:  ServerConfig{Addr: "127.0.0.1:8080"},
		Storage: StorageConfig{Driver: DriverSQLite},
		Map:     MapConfig{Path: "map.geojson"},
		Graph:   GraphConfig{JunctionToleranceMeters: graph.DefaultJunctionTolerance},
		Visitation: VisitationConfig{
			CornerFillMeters: visitation.DefaultCornerFillMeters,
			FullCoverage:     [2]float64{0, 1},
		},
		Optimizer: OptimizerConfig{
			Algorithm:   routing.DefaultAlgorithm,
			MaxVariants: routing.DefaultMaxVariants,
			Parallel:    true,
			Annealing: AnnealingConfig{
				InitialTemperature: sa.InitialTemperature,
				CoolingRate:        sa.CoolingRate,
				MinTemperature:     sa.MinTemperature,
				MaxIterations:      sa.MaxIterations,
			},
			LinKernighan: LinKernighanConfig{MaxDepth: lk.MaxDepth, Neighbors: lk.Neighbors},
		},
		Routing: RoutingConfig{WalkingSpeedMps: 1.3},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads the config file over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Info("[CONFIG] config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("SERVER_ADDR", c.Server.Addr)
	c.Storage.Path = getEnv("WALK_ROUTER_DB", c.Storage.Path)
	c.Map.Path = getEnv("WALK_ROUTER_MAP", c.Map.Path)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks values the decoder cannot
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverFile:
	default:
		return fmt.Errorf("invalid storage driver %q", c.Storage.Driver)
	}
	switch c.Map.Format {
	case "", "geojson", "osm":
	default:
		return fmt.Errorf("invalid map format %q", c.Map.Format)
	}
	if lo, hi := c.Visitation.FullCoverage[0], c.Visitation.FullCoverage[1]; lo < 0 || hi > 1 || lo >= hi {
		return fmt.Errorf("invalid full coverage range [%g,%g]", lo, hi)
	}
	if c.Optimizer.MaxVariants <= 0 {
		return fmt.Errorf("optimizer.max_variants must be positive")
	}
	if c.Routing.WalkingSpeedMps <= 0 {
		return fmt.Errorf("routing.walking_speed_mps must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if _, err := c.Strategy(); err != nil {
		return err
	}
	return nil
}

// BuilderOptions returns the graph construction options
func (c *Config) BuilderOptions() graph.BuilderOptions {
	return graph.BuilderOptions{JunctionTolerance: c.Graph.JunctionToleranceMeters}
}

// VisitationOptions returns the edge visitation tracker options
func (c *Config) VisitationOptions() visitation.Options {
	return visitation.Options{
		CornerFillMeters: c.Visitation.CornerFillMeters,
		FullCoverage: models.Interval{
			Start: c.Visitation.FullCoverage[0],
			End:   c.Visitation.FullCoverage[1],
		},
	}
}

// Strategy builds the configured optimizer strategy
func (c *Config) Strategy() (routing.Strategy, error) {
	o := c.Optimizer
	return routing.ParseStrategy(string(o.Algorithm), routing.StrategyOptions{
		Annealing: routing.Annealing{
			InitialTemperature: o.Annealing.InitialTemperature,
			CoolingRate:        o.Annealing.CoolingRate,
			MinTemperature:     o.Annealing.MinTemperature,
			MaxIterations:      o.Annealing.MaxIterations,
			Seed:               o.Annealing.Seed,
		},
		LinKernighan: routing.LinKernighan{
			MaxDepth:  o.LinKernighan.MaxDepth,
			Neighbors: o.LinKernighan.Neighbors,
		},
		Parallel: o.Parallel,
	})
}
