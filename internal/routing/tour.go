package routing

import "math"

// improvementEpsilon is the smallest cost change counted as an improvement
const improvementEpsilon = 1e-9

// PathCost is the length of the open path visiting order front to back
func PathCost(order []int, dist DistanceFunc) float64 {
	total := 0.0
	for k := 1; k < len(order); k++ {
		total += dist(order[k-1], order[k])
	}
	return total
}

// cycleCost is PathCost plus the edge back to the start
func cycleCost(order []int, dist DistanceFunc) float64 {
	if len(order) < 2 {
		return 0
	}
	return PathCost(order, dist) + dist(order[len(order)-1], order[0])
}

func isPinned(pinned []bool, k int) bool {
	return k < len(pinned) && pinned[k]
}

func freePositions(pinned []bool, n int) []int {
	free := make([]int, 0, n)
	for k := 0; k < n; k++ {
		if !isPinned(pinned, k) {
			free = append(free, k)
		}
	}
	return free
}

// canReverse reports whether reversing positions [start, end] keeps every
// pinned position in place. Reversal maps k to start+end-k, so only the
// middle position of an odd-length segment maps onto itself; an
// even-length segment has no fixed position at all.
func canReverse(pinned []bool, start, end int) bool {
	oddLength := (end-start)%2 == 0
	for k := start; k <= end; k++ {
		if !isPinned(pinned, k) {
			continue
		}
		if !oddLength || 2*k != start+end {
			return false
		}
	}
	return true
}

// reversalDelta is the cost change of reversing positions [start, end].
// Closed tours also count the edges wrapping around the ends; callers
// must not pass a segment covering the whole cycle.
func reversalDelta(tour []int, start, end int, dist DistanceFunc, closed bool) float64 {
	n := len(tour)
	var before, after float64

	if start > 0 || closed {
		prev := tour[(start-1+n)%n]
		before += dist(prev, tour[start])
		after += dist(prev, tour[end])
	}
	if end < n-1 || closed {
		next := tour[(end+1)%n]
		before += dist(tour[end], next)
		after += dist(tour[start], next)
	}
	for k := start; k < end; k++ {
		before += dist(tour[k], tour[k+1])
		after += dist(tour[k+1], tour[k])
	}

	delta := after - before
	if math.IsNaN(delta) {
		return math.Inf(1)
	}
	return delta
}

func reverse(tour []int, start, end int) {
	for start < end {
		tour[start], tour[end] = tour[end], tour[start]
		start++
		end--
	}
}

func cloneOrder(order []int) []int {
	return append([]int(nil), order...)
}

// Identity returns the order 0..n-1
func Identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}
