// Package mapdata loads the walkable network and the visitable regions of a
// facility from map files.
package mapdata

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"golang.org/x/exp/slog"

	"walk-router/internal/models"
)

// Supported map formats
const (
	FormatGeoJSON = "geojson"
	FormatOSM     = "osm"
)

// ErrUnsupportedFormat is returned for map formats without a loader
var ErrUnsupportedFormat = errors.New("unsupported map format")

// MapData is the input of the route graph: public and technical polylines
// plus the regions stages refer to. Version changes with the file content.
type MapData struct {
	Roads          []orb.LineString
	TechnicalRoads []orb.LineString
	Regions        []models.Region
	Version        string
}

// Region returns the region with the given id
func (m *MapData) Region(id string) (models.Region, bool) {
	for _, r := range m.Regions {
		if r.ID == id {
			return r, true
		}
	}
	return models.Region{}, false
}

// Load reads a map file in the given format. An empty format is guessed
// from the file extension.
func Load(ctx context.Context, path, format string) (*MapData, error) {
	if format == "" {
		format = guessFormat(path)
	}

	var (
		data *MapData
		err  error
	)
	switch format {
	case FormatGeoJSON:
		data, err = LoadGeoJSON(path)
	case FormatOSM:
		data, err = LoadOSM(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("[MAP] map data loaded",
		"path", path, "format", format, "roads", len(data.Roads),
		"technical_roads", len(data.TechnicalRoads), "regions", len(data.Regions),
		"version", data.Version)
	return data, nil
}

func guessFormat(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".pbf") || strings.HasSuffix(lower, ".osm.pbf") {
		return FormatOSM
	}
	return FormatGeoJSON
}

func versionOf(r io.Reader) (string, error) {
	h := fnv.New64a()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func fileVersion(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return versionOf(f)
}
