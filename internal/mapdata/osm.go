package mapdata

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"golang.org/x/exp/slog"

	"walk-router/internal/models"
)

type wayKind int

const (
	wayIgnored wayKind = iota
	wayRoad
	wayTechnical
	wayRegion
)

// classifyWay decides what a way contributes to the map
func classifyWay(w *osm.Way) wayKind {
	switch w.Tags.Find("highway") {
	case "footway", "path", "pedestrian", "steps", "living_street":
		return wayRoad
	case "service", "track":
		return wayTechnical
	case "":
	default:
		return wayIgnored
	}

	if w.Tags.Find("name") != "" && len(w.Nodes) >= 4 && w.Nodes[0].ID == w.Nodes[len(w.Nodes)-1].ID {
		return wayRegion
	}
	return wayIgnored
}

type pendingWay struct {
	id    osm.WayID
	kind  wayKind
	name  string
	nodes []osm.NodeID
}

// LoadOSM reads an OSM PBF extract in two passes: ways first to learn
// which nodes matter, then nodes for their coordinates
func LoadOSM(ctx context.Context, path string) (*MapData, error) {
	version, err := fileVersion(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open map file: %w", err)
	}
	defer file.Close()

	ways, wanted, err := scanWays(ctx, file)
	if err != nil {
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	coords, err := scanNodes(ctx, file, wanted)
	if err != nil {
		return nil, err
	}

	data := &MapData{Version: version}
	missing := 0
	for _, w := range ways {
		pieces := resolve(w.nodes, coords)
		if len(pieces) != 1 || len(pieces[0]) != len(w.nodes) {
			missing++
		}

		switch w.kind {
		case wayRoad, wayTechnical:
			for _, line := range pieces {
				data.addLine(line, w.kind == wayTechnical)
			}
		case wayRegion:
			if len(pieces) != 1 || len(pieces[0]) != len(w.nodes) {
				continue
			}
			r := models.Region{
				ID:      fmt.Sprintf("way/%d", w.id),
				Name:    w.name,
				Polygon: orb.Polygon{orb.Ring(pieces[0])},
			}
			r.Center = r.FindCenter()
			data.Regions = append(data.Regions, r)
		}
	}
	if missing > 0 {
		slog.Warn("[MAP] ways reference nodes outside the extract", "ways", missing)
	}
	return data, nil
}

func scanWays(ctx context.Context, r io.Reader) ([]pendingWay, map[osm.NodeID]bool, error) {
	scanner := osmpbf.New(ctx, r, runtime.GOMAXPROCS(-1))
	defer scanner.Close()
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	var ways []pendingWay
	wanted := make(map[osm.NodeID]bool)
	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		kind := classifyWay(w)
		if kind == wayIgnored {
			continue
		}
		ids := w.Nodes.NodeIDs()
		for _, id := range ids {
			wanted[id] = true
		}
		ways = append(ways, pendingWay{id: w.ID, kind: kind, name: w.Tags.Find("name"), nodes: ids})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to scan ways: %w", err)
	}
	return ways, wanted, nil
}

func scanNodes(ctx context.Context, r io.Reader, wanted map[osm.NodeID]bool) (map[osm.NodeID]orb.Point, error) {
	scanner := osmpbf.New(ctx, r, runtime.GOMAXPROCS(-1))
	defer scanner.Close()
	scanner.SkipWays = true
	scanner.SkipRelations = true

	coords := make(map[osm.NodeID]orb.Point, len(wanted))
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok || !wanted[n.ID] {
			continue
		}
		coords[n.ID] = orb.Point{n.Lon, n.Lat}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan nodes: %w", err)
	}
	return coords, nil
}

// resolve maps node ids to points. Nodes missing from the extract split
// the way so no straight line is drawn across the gap.
func resolve(ids []osm.NodeID, coords map[osm.NodeID]orb.Point) []orb.LineString {
	var (
		pieces  []orb.LineString
		current orb.LineString
	)
	for _, id := range ids {
		p, ok := coords[id]
		if !ok {
			if len(current) > 1 {
				pieces = append(pieces, current)
			}
			current = nil
			continue
		}
		current = append(current, p)
	}
	if len(current) > 1 {
		pieces = append(pieces, current)
	}
	return pieces
}
