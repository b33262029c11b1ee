package graph

import (
	"sort"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/exp/slog"
)

// DefaultJunctionTolerance is the slack in meters under which a node is
// considered to lie on a segment
const DefaultJunctionTolerance = 0.1

// BuilderOptions configures graph construction
type BuilderOptions struct {
	JunctionTolerance float64
}

// DefaultBuilderOptions returns the options used when none are configured
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{JunctionTolerance: DefaultJunctionTolerance}
}

// Builder turns polylines into a deduplicated graph
type Builder struct {
	opts  BuilderOptions
	graph *Graph
}

// NewBuilder creates a builder with an empty graph
func NewBuilder(opts BuilderOptions) *Builder {
	if opts.JunctionTolerance <= 0 {
		opts.JunctionTolerance = DefaultJunctionTolerance
	}
	return &Builder{opts: opts, graph: New()}
}

// AddPolyline connects every consecutive vertex pair of line
func (b *Builder) AddPolyline(line orb.LineString, technical bool) {
	for i := 1; i < len(line); i++ {
		from := b.graph.AddNode(line[i-1])
		to := b.graph.AddNode(line[i])
		b.graph.Connect(from, to, technical)
	}
}

// Build repairs T-junctions and returns the finished graph
func (b *Builder) Build() *Graph {
	start := time.Now()
	repaired := b.repairJunctions()
	slog.Info("[GRAPH] built",
		"nodes", b.graph.NodeCount(),
		"edges", b.graph.EdgeCount(),
		"junctions_repaired", repaired,
		"took", time.Since(start))
	return b.graph
}

// Build creates a graph from public and technical polylines
func Build(roads, technicalRoads []orb.LineString, opts BuilderOptions) *Graph {
	b := NewBuilder(opts)
	for _, line := range roads {
		b.AddPolyline(line, false)
	}
	for _, line := range technicalRoads {
		b.AddPolyline(line, true)
	}
	return b.Build()
}

type connection struct {
	a, b      NodeID
	technical bool
}

// repairJunctions wires every node that lies on a connected segment without
// sharing its vertex into that segment. Splitting a segment can expose
// further nodes on the halves, so passes repeat until nothing changes.
func (b *Builder) repairJunctions() int {
	g := b.graph
	byX := newXIndex(g)
	margin := b.opts.JunctionTolerance/metersPerDegree + 1e-9

	repaired := 0
	for changed := true; changed; {
		changed = false

		var pending []connection
		g.ForEachEdge(func(from NodeID, e Edge) {
			pending = append(pending, connection{a: from, b: e.To, technical: e.Technical})
		})

		for _, c := range pending {
			if !g.Connected(c.a, c.b) {
				continue
			}
			p, ok := b.nodeOnSegment(byX, c, margin)
			if !ok {
				continue
			}
			g.Connect(c.a, p, c.technical)
			g.Connect(p, c.b, c.technical)
			g.Disconnect(c.a, c.b)
			repaired++
			changed = true
		}
	}
	return repaired
}

// nodeOnSegment finds the node closest to c.a that lies between c.a and c.b
// and is not yet connected to either of them
func (b *Builder) nodeOnSegment(byX xIndex, c connection, margin float64) (NodeID, bool) {
	g := b.graph
	pa, pb := g.Point(c.a), g.Point(c.b)
	bound := orb.MultiPoint{pa, pb}.Bound().Pad(margin)

	best := NoNode
	bestDist := 0.0
	byX.scan(bound, func(p NodeID) {
		if p == c.a || p == c.b || g.Connected(p, c.a) || g.Connected(p, c.b) {
			return
		}
		pp := g.Point(p)
		if !isBetween(pa, pp, pb, b.opts.JunctionTolerance) {
			return
		}
		d := Distance(pa, pp)
		if best == NoNode || d < bestDist {
			best, bestDist = p, d
		}
	})
	return best, best != NoNode
}

// xIndex is the node list sorted by longitude for bounding box scans
type xIndex struct {
	g   *Graph
	ids []NodeID
}

func newXIndex(g *Graph) xIndex {
	ids := g.NodeIDs()
	sort.Slice(ids, func(i, j int) bool {
		return g.Point(ids[i]).X() < g.Point(ids[j]).X()
	})
	return xIndex{g: g, ids: ids}
}

func (x xIndex) scan(bound orb.Bound, fn func(NodeID)) {
	i := sort.Search(len(x.ids), func(i int) bool {
		return x.g.Point(x.ids[i]).X() >= bound.Min.X()
	})
	for ; i < len(x.ids); i++ {
		p := x.g.Point(x.ids[i])
		if p.X() > bound.Max.X() {
			break
		}
		if p.Y() >= bound.Min.Y() && p.Y() <= bound.Max.Y() {
			fn(x.ids[i])
		}
	}
}
