package routing

import (
	"context"
	"math"
)

// NearestNeighbor builds a path by always walking to the closest point not
// yet visited. Pinned points are taken out first and put back at their
// original positions, where they also become the point the next pick is
// measured from.
type NearestNeighbor struct{}

func (NearestNeighbor) Name() string { return "nn" }

func (NearestNeighbor) Run(ctx context.Context, order []int, dist DistanceFunc, pinned []bool) []int {
	n := len(order)
	if n <= 2 {
		return cloneOrder(order)
	}

	var free []int
	for k, v := range order {
		if !isPinned(pinned, k) {
			free = append(free, v)
		}
	}
	used := make([]bool, len(free))

	result := make([]int, n)
	current := -1
	for k := 0; k < n; k++ {
		if isPinned(pinned, k) {
			result[k] = order[k]
			current = order[k]
			continue
		}

		pick := -1
		best := math.Inf(1)
		for f, v := range free {
			if used[f] {
				continue
			}
			if current < 0 {
				// open path without an anchor starts where the input did
				pick = f
				break
			}
			if d := dist(current, v); pick < 0 || d < best {
				pick, best = f, d
			}
		}

		used[pick] = true
		result[k] = free[pick]
		current = free[pick]
	}
	return result
}
