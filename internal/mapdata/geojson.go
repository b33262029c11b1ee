package mapdata

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"golang.org/x/exp/slog"

	"walk-router/internal/models"
)

// LoadGeoJSON reads a GeoJSON FeatureCollection from disk
func LoadGeoJSON(path string) (*MapData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}
	return ParseGeoJSON(raw)
}

// ParseGeoJSON converts a FeatureCollection into map data. Lines become
// roads; lines tagged technical=true or highway=service|track become
// technical roads. Polygons with an id or name become regions.
func ParseGeoJSON(raw []byte) (*MapData, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	version, err := versionOf(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	data := &MapData{Version: version}

	skipped := 0
	for _, f := range fc.Features {
		switch geom := f.Geometry.(type) {
		case orb.LineString:
			data.addLine(geom, isTechnical(f.Properties))
		case orb.MultiLineString:
			for _, line := range geom {
				data.addLine(line, isTechnical(f.Properties))
			}
		case orb.Polygon:
			if !data.addRegion(f, geom) {
				skipped++
			}
		case orb.MultiPolygon:
			if len(geom) == 0 || !data.addRegion(f, largest(geom)) {
				skipped++
			}
		default:
			skipped++
		}
	}
	if skipped > 0 {
		slog.Debug("[MAP] skipped GeoJSON features", "count", skipped)
	}
	return data, nil
}

func (m *MapData) addLine(line orb.LineString, technical bool) {
	if len(line) < 2 {
		return
	}
	if technical {
		m.TechnicalRoads = append(m.TechnicalRoads, line)
	} else {
		m.Roads = append(m.Roads, line)
	}
}

func (m *MapData) addRegion(f *geojson.Feature, polygon orb.Polygon) bool {
	id := featureID(f)
	name := propertyString(f.Properties, "name")
	if id == "" {
		id = name
	}
	if id == "" || len(polygon) == 0 {
		return false
	}
	if name == "" {
		name = id
	}

	r := models.Region{ID: id, Name: name, Polygon: polygon}
	r.Center = r.FindCenter()
	m.Regions = append(m.Regions, r)
	return true
}

func featureID(f *geojson.Feature) string {
	if id := propertyString(f.Properties, "id"); id != "" {
		return id
	}
	if f.ID != nil {
		return fmt.Sprint(f.ID)
	}
	return ""
}

func propertyString(props geojson.Properties, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprint(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func isTechnical(props geojson.Properties) bool {
	switch v := props["technical"].(type) {
	case bool:
		if v {
			return true
		}
	case string:
		if v == "true" || v == "yes" {
			return true
		}
	}
	return isTechnicalHighway(propertyString(props, "highway"))
}

func isTechnicalHighway(highway string) bool {
	switch strings.ToLower(highway) {
	case "service", "track":
		return true
	}
	return false
}

func largest(mp orb.MultiPolygon) orb.Polygon {
	best := mp[0]
	bestArea := 0.0
	for _, p := range mp {
		if a := math.Abs(planar.Area(p)); a > bestArea {
			best, bestArea = p, a
		}
	}
	return best
}
