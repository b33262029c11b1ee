package visitation

import (
	"math"

	"github.com/paulmach/orb"

	"walk-router/internal/models"
)

// edgeKey identifies an undirected edge by its endpoints in canonical
// order: first has the larger X, ties broken by the larger Y
type edgeKey struct {
	first, second orb.Point
}

func newEdgeKey(a, b orb.Point) edgeKey {
	if b.X() > a.X() || (b.X() == a.X() && b.Y() > a.Y()) {
		a, b = b, a
	}
	return edgeKey{first: a, second: b}
}

// position is the fraction of the way from first to second at which p
// lies. Vertical edges are measured along Y.
func (k edgeKey) position(p orb.Point) float64 {
	var t float64
	if dx := k.second.X() - k.first.X(); dx != 0 {
		t = (p.X() - k.first.X()) / dx
	} else if dy := k.second.Y() - k.first.Y(); dy != 0 {
		t = (p.Y() - k.first.Y()) / dy
	}
	return math.Max(0, math.Min(1, t))
}

// orient returns the intervals of e measured from k.first
func (k edgeKey) orient(e models.VisitedEdge) []models.Interval {
	if e.From.Point() == k.first {
		return e.Intervals
	}
	flipped := make([]models.Interval, len(e.Intervals))
	for i, r := range e.Intervals {
		flipped[i] = models.Interval{Start: 1 - r.End, End: 1 - r.Start}
	}
	return flipped
}

func (k edgeKey) less(other edgeKey) bool {
	if k.first != other.first {
		return pointLess(k.first, other.first)
	}
	return pointLess(k.second, other.second)
}

func pointLess(a, b orb.Point) bool {
	if a.X() != b.X() {
		return a.X() < b.X()
	}
	return a.Y() < b.Y()
}
