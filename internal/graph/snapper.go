package graph

import (
	"github.com/paulmach/orb"
)

// SnapResult is the closest graph position to a query point. When the
// point snapped onto an existing node A and B are equal.
type SnapResult struct {
	Point    orb.Point
	A, B     NodeID
	Distance float64
}

// OnNode reports whether the snap landed on an existing node
func (r SnapResult) OnNode() bool {
	return r.A == r.B
}

// Nodes returns the bounding nodes, one for node snaps and two for edge snaps
func (r SnapResult) Nodes() []NodeID {
	if r.OnNode() {
		return []NodeID{r.A}
	}
	return []NodeID{r.A, r.B}
}

// Snap projects p onto the nearest edge. Technical edges are only
// considered when technicalAllowed is set. On equal distances the first
// edge in arena order wins.
func Snap(g *Graph, p orb.Point, technicalAllowed bool) (SnapResult, bool) {
	best := SnapResult{A: NoNode, B: NoNode}
	found := false

	g.ForEachEdge(func(from NodeID, e Edge) {
		if e.Technical && !technicalAllowed {
			return
		}
		proj, t := projectOnSegment(p, g.Point(from), g.Point(e.To))
		d := Distance(p, proj)
		if found && d >= best.Distance {
			return
		}

		found = true
		best = SnapResult{Point: proj, A: from, B: e.To, Distance: d}
		switch {
		case t <= 0 || proj == g.Point(from):
			best.B = from
			best.Point = g.Point(from)
		case t >= 1 || proj == g.Point(e.To):
			best.A = e.To
			best.Point = g.Point(e.To)
		}
	})

	return best, found
}
