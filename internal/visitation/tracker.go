package visitation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/exp/slog"

	"walk-router/internal/graph"
	"walk-router/internal/models"
)

// DefaultCornerFillMeters caps the path used to bridge two fixes that
// snapped onto unrelated edges
const DefaultCornerFillMeters = 30.0

// ErrInvariantViolation reports a trace step that does not reduce to a
// single edge. It indicates a bug in gap filling, not bad input.
type ErrInvariantViolation struct {
	Reason string
}

func (e *ErrInvariantViolation) Error() string {
	return fmt.Sprintf("visitation invariant violated: %s", e.Reason)
}

// GraphAccessor gives exclusive, read-only access to the walkable graph
type GraphAccessor interface {
	WithGraph(ctx context.Context, fn func(g *graph.Graph) error) error
}

// Options configures the tracker
type Options struct {
	CornerFillMeters float64
	// FullCoverage is the range an edge's visited set must contain to be
	// reported as fully visited
	FullCoverage models.Interval
}

// DefaultOptions returns the tracker defaults
func DefaultOptions() Options {
	return Options{
		CornerFillMeters: DefaultCornerFillMeters,
		FullCoverage:     FullInterval(),
	}
}

// Tracker reduces position traces to visited edges
type Tracker struct {
	graphs GraphAccessor
	opts   Options
}

// NewTracker creates a tracker over the given graph
func NewTracker(graphs GraphAccessor, opts Options) *Tracker {
	if opts.CornerFillMeters <= 0 {
		opts.CornerFillMeters = DefaultCornerFillMeters
	}
	if opts.FullCoverage == (models.Interval{}) {
		opts.FullCoverage = FullInterval()
	}
	return &Tracker{graphs: graphs, opts: opts}
}

// tracePoint is a snapped fix together with the nodes bounding it. Node
// positions have a == b.
type tracePoint struct {
	p    orb.Point
	a, b graph.NodeID
}

func nodePoint(g *graph.Graph, id graph.NodeID) tracePoint {
	return tracePoint{p: g.Point(id), a: id, b: id}
}

func (tp tracePoint) nodes() []graph.NodeID {
	if tp.a == tp.b {
		return []graph.NodeID{tp.a}
	}
	return []graph.NodeID{tp.a, tp.b}
}

// SnapToEdges snaps each trace onto public edges and returns the edges it
// covered with their visited fractions
func (t *Tracker) SnapToEdges(ctx context.Context, traces [][]orb.Point) ([]models.VisitedEdge, error) {
	start := time.Now()
	visited := make(map[edgeKey]IntervalSet)

	err := t.graphs.WithGraph(ctx, func(g *graph.Graph) error {
		for _, trace := range traces {
			for _, segment := range t.connect(g, t.snapTrace(g, trace)) {
				if err := t.collect(g, dedupe(segment), visited); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to snap traces: %w", err)
	}

	edges := t.toVisitedEdges(visited)
	slog.Debug("[VISITS] traces snapped", "traces", len(traces), "edges", len(edges), "took", time.Since(start))
	return edges, nil
}

func (t *Tracker) snapTrace(g *graph.Graph, trace []orb.Point) []tracePoint {
	snapped := make([]tracePoint, 0, len(trace))
	for _, p := range trace {
		snap, ok := graph.Snap(g, p, false)
		if !ok {
			snappedPointsTotal.WithLabelValues("dropped").Inc()
			continue
		}
		snappedPointsTotal.WithLabelValues("snapped").Inc()
		snapped = append(snapped, tracePoint{p: snap.Point, a: snap.A, b: snap.B})
	}
	return snapped
}

// connect fills the gaps between consecutive snapped fixes. A gap that
// cannot be bridged splits the trace into separate segments.
func (t *Tracker) connect(g *graph.Graph, points []tracePoint) [][]tracePoint {
	if len(points) == 0 {
		return nil
	}

	var segments [][]tracePoint
	current := []tracePoint{points[0]}
	for i := 1; i < len(points); i++ {
		prev, next := points[i-1], points[i]

		if sameEdge(g, prev, next) {
			current = append(current, next)
			continue
		}
		if shared, ok := sharedNode(prev, next); ok {
			current = append(current, nodePoint(g, shared), next)
			continue
		}
		if bridge, ok := t.bridge(g, prev, next); ok {
			current = append(current, bridge...)
			current = append(current, next)
			continue
		}

		segments = append(segments, current)
		current = []tracePoint{next}
	}
	return append(segments, current)
}

func unionNodes(a, b tracePoint) []graph.NodeID {
	nodes := a.nodes()
	for _, n := range b.nodes() {
		if !containsNode(nodes, n) {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func containsNode(nodes []graph.NodeID, n graph.NodeID) bool {
	for _, v := range nodes {
		if v == n {
			return true
		}
	}
	return false
}

// sameEdge reports whether two fixes lie on one public edge
func sameEdge(g *graph.Graph, a, b tracePoint) bool {
	nodes := unionNodes(a, b)
	switch len(nodes) {
	case 1:
		return true
	case 2:
		e, ok := g.Edge(nodes[0], nodes[1])
		return ok && !e.Technical
	}
	return false
}

func sharedNode(a, b tracePoint) (graph.NodeID, bool) {
	for _, n := range a.nodes() {
		if containsNode(b.nodes(), n) {
			return n, true
		}
	}
	return graph.NoNode, false
}

// bridge runs a bounded public-only search between the bounding nodes of
// two fixes and returns the nodes in between
func (t *Tracker) bridge(g *graph.Graph, prev, next tracePoint) ([]tracePoint, bool) {
	var best graph.Path
	bestCost := math.Inf(1)

	for _, from := range prev.nodes() {
		for _, to := range next.nodes() {
			path := graph.ShortestPath(g, from, to, graph.SearchOptions{MaxDistance: t.opts.CornerFillMeters})
			if !path.Found || path.UsesTechnical || path.Distance > t.opts.CornerFillMeters {
				continue
			}
			cost := graph.Distance(prev.p, g.Point(from)) + path.Distance + graph.Distance(g.Point(to), next.p)
			if cost < bestCost {
				best, bestCost = path, cost
			}
		}
	}
	if math.IsInf(bestCost, 1) {
		return nil, false
	}

	bridge := make([]tracePoint, len(best.Nodes))
	for i, id := range best.Nodes {
		bridge[i] = nodePoint(g, id)
	}
	return bridge, true
}

func dedupe(points []tracePoint) []tracePoint {
	if len(points) == 0 {
		return points
	}
	result := []tracePoint{points[0]}
	for _, tp := range points[1:] {
		if tp.p != result[len(result)-1].p {
			result = append(result, tp)
		}
	}
	return result
}

// collect turns each adjacent pair into an interval on the edge they share
func (t *Tracker) collect(g *graph.Graph, points []tracePoint, visited map[edgeKey]IntervalSet) error {
	for i := 1; i < len(points); i++ {
		prev, next := points[i-1], points[i]
		nodes := unionNodes(prev, next)
		if len(nodes) != 2 {
			return &ErrInvariantViolation{
				Reason: fmt.Sprintf("adjacent trace points span %d nodes, want 2", len(nodes)),
			}
		}

		key := newEdgeKey(g.Point(nodes[0]), g.Point(nodes[1]))
		visited[key] = visited[key].Plus(models.Interval{
			Start: key.position(prev.p),
			End:   key.position(next.p),
		})
	}
	return nil
}

func (t *Tracker) toVisitedEdges(visited map[edgeKey]IntervalSet) []models.VisitedEdge {
	return buildVisitedEdges(visited, t.opts.FullCoverage)
}

// Merge folds newly visited edges into existing ones
func (t *Tracker) Merge(existing, added []models.VisitedEdge) []models.VisitedEdge {
	return Merge(existing, added, t.opts.FullCoverage)
}

// Merge folds two visited edge lists. An edge fully visited in either list
// stays fully visited; partial visits are unioned.
func Merge(existing, added []models.VisitedEdge, fullCoverage models.Interval) []models.VisitedEdge {
	visited := make(map[edgeKey]IntervalSet)
	for _, list := range [][]models.VisitedEdge{existing, added} {
		for _, e := range list {
			key := newEdgeKey(e.From.Point(), e.To.Point())
			if e.Fully {
				visited[key] = NewIntervalSet(FullInterval())
				continue
			}
			visited[key] = visited[key].Union(NewIntervalSet(key.orient(e)...))
		}
	}
	return buildVisitedEdges(visited, fullCoverage)
}

func buildVisitedEdges(visited map[edgeKey]IntervalSet, fullCoverage models.Interval) []models.VisitedEdge {
	keys := make([]edgeKey, 0, len(visited))
	for key := range visited {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	edges := make([]models.VisitedEdge, 0, len(keys))
	for _, key := range keys {
		set := visited[key]
		e := models.VisitedEdge{
			From: models.CoordinatesFromPoint(key.first),
			To:   models.CoordinatesFromPoint(key.second),
		}
		if set.Covers(fullCoverage) {
			e.Fully = true
		} else {
			e.Intervals = set.Ranges()
		}
		edges = append(edges, e)
	}
	return edges
}
