package models

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts the coordinates to an orb point (X = longitude, Y = latitude)
func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// CoordinatesFromPoint converts an orb point back to coordinates
func CoordinatesFromPoint(p orb.Point) Coordinates {
	return Coordinates{Lat: p.Lat(), Lng: p.Lon()}
}

// CoordinatesFromPath converts a list of orb points to coordinates
func CoordinatesFromPath(path []orb.Point) []Coordinates {
	result := make([]Coordinates, len(path))
	for i, p := range path {
		result[i] = CoordinatesFromPoint(p)
	}
	return result
}

// RoundCoordinate rounds a coordinate to 5 decimal places (~1m)
func RoundCoordinate(coord float64) float64 {
	return math.Round(coord*100000) / 100000
}

// Region is a named area of the facility a visitor can go to
type Region struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Center  Coordinates `json:"center"`
	Polygon orb.Polygon `json:"-"`
}

// FindCenter returns the area centroid of the region polygon.
// Degenerate polygons fall back to their first vertex.
func (r *Region) FindCenter() Coordinates {
	if len(r.Polygon) == 0 || len(r.Polygon[0]) == 0 {
		return r.Center
	}
	centroid, area := planar.CentroidArea(r.Polygon)
	if area == 0 || math.IsNaN(centroid[0]) || math.IsNaN(centroid[1]) {
		return CoordinatesFromPoint(r.Polygon[0][0])
	}
	return CoordinatesFromPoint(centroid)
}

// StageKind distinguishes region visits from the live position anchor
type StageKind string

const (
	StageKindRegion       StageKind = "region"
	StageKindUserPosition StageKind = "user_position"
)

// Stage is one visit target of a planned route
type Stage struct {
	Kind     StageKind    `json:"kind"`
	Regions  []Region     `json:"regions,omitempty"`
	Mutable  bool         `json:"mutable"`
	Seen     bool         `json:"seen"`
	Position *Coordinates `json:"position,omitempty"`
}

// NewRegionStage creates a stage with one or more alternative regions
func NewRegionStage(regions []Region, mutable, seen bool) Stage {
	return Stage{
		Kind:    StageKindRegion,
		Regions: regions,
		Mutable: mutable,
		Seen:    seen,
	}
}

// NewUserPositionStage creates the live position anchor
func NewUserPositionStage(position Coordinates) Stage {
	return Stage{
		Kind:     StageKindUserPosition,
		Position: &position,
	}
}

// IsUserPosition reports whether the stage tracks the live position
func (s Stage) IsUserPosition() bool {
	return s.Kind == StageKindUserPosition
}

// Immutable reports whether the optimizer must keep the stage at its index
func (s Stage) Immutable() bool {
	return s.IsUserPosition() || s.Seen || !s.Mutable
}

// HasAlternatives reports whether the stage offers more than one region
func (s Stage) HasAlternatives() bool {
	return s.Kind == StageKindRegion && len(s.Regions) > 1
}

// WithRegion returns a copy of the stage narrowed to a single region
func (s Stage) WithRegion(region Region) Stage {
	narrowed := s
	narrowed.Regions = []Region{region}
	return narrowed
}

// Point returns the point the stage is visited at. Multi-region stages
// answer with their first candidate.
func (s Stage) Point() (Coordinates, bool) {
	if s.IsUserPosition() {
		if s.Position == nil {
			return Coordinates{}, false
		}
		return *s.Position, true
	}
	if len(s.Regions) == 0 {
		return Coordinates{}, false
	}
	return s.Regions[0].Center, true
}

// PlannedRoute is the output of a stage route optimization
type PlannedRoute struct {
	Stages              []Stage       `json:"stages"`
	StopPoints          []Coordinates `json:"stop_points"`
	Path                []Coordinates `json:"path"`
	TotalDistanceMeters float64       `json:"total_distance_meters"`
	VariantsEvaluated   int           `json:"variants_evaluated"`
	Algorithm           string        `json:"algorithm"`
}

// RegionDistanceEntry represents a cached walking distance between two regions
type RegionDistanceEntry struct {
	RegionA        string  `json:"region_a"`
	RegionB        string  `json:"region_b"`
	MapVersion     string  `json:"map_version"`
	DistanceMeters float64 `json:"distance_meters"`
}

// RegionPair returns the two ids in sorted order so (a,b) and (b,a) share an entry
func RegionPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// RegionPairKey builds the lookup key for a region pair within a map version
func RegionPairKey(mapVersion, a, b string) string {
	first, second := RegionPair(a, b)
	return fmt.Sprintf("%s|%s|%s", mapVersion, first, second)
}

// Interval is a closed sub-range of an edge, as fractions in [0,1]
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// VisitedEdge records how much of one graph edge was walked
type VisitedEdge struct {
	From      Coordinates `json:"from"`
	To        Coordinates `json:"to"`
	Fully     bool        `json:"fully"`
	Intervals []Interval  `json:"intervals,omitempty"`
}
