package graph

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// metersPerDegree is the length of one degree of latitude, used to turn
// meter tolerances into coordinate margins.
const metersPerDegree = 111320.0

// Distance returns the great-circle distance between two points in meters
func Distance(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b)
}

// PathLength sums the great-circle length of a point sequence
func PathLength(path []orb.Point) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += Distance(path[i-1], path[i])
	}
	return total
}

// projectOnSegment returns the flat-earth perpendicular projection of p onto
// segment a-b, clamped to the segment, and the projection parameter t.
func projectOnSegment(p, a, b orb.Point) (orb.Point, float64) {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return a, 0
	}

	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lengthSq
	switch {
	case t <= 0:
		return a, 0
	case t >= 1:
		return b, 1
	}
	return orb.Point{a[0] + t*dx, a[1] + t*dy}, t
}

// isBetween reports whether p lies on segment a-b within tolerance meters
func isBetween(a, p, b orb.Point, tolerance float64) bool {
	return Distance(a, p)+Distance(p, b)-Distance(a, b) < tolerance
}
