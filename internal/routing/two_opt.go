package routing

import "context"

// TwoOpt repeatedly applies the single segment reversal that shortens the
// open path the most, until no reversal helps. It refines the order it is
// given; seed it with NearestNeighbor ("nn+2opt").
type TwoOpt struct {
	// MaxPasses bounds the number of applied reversals, 0 means unbounded
	MaxPasses int
}

func (TwoOpt) Name() string { return "2opt" }

func (t TwoOpt) Run(ctx context.Context, order []int, dist DistanceFunc, pinned []bool) []int {
	tour := cloneOrder(order)
	n := len(tour)
	if n < 3 || len(freePositions(pinned, n)) < 2 {
		return tour
	}

	for pass := 0; t.MaxPasses <= 0 || pass < t.MaxPasses; pass++ {
		if ctx.Err() != nil {
			break
		}

		bestDelta := -improvementEpsilon
		bestStart, bestEnd := -1, -1
		for start := 0; start < n-1; start++ {
			for end := start + 1; end < n; end++ {
				if !canReverse(pinned, start, end) {
					continue
				}
				if delta := reversalDelta(tour, start, end, dist, false); delta < bestDelta {
					bestDelta, bestStart, bestEnd = delta, start, end
				}
			}
		}
		if bestStart < 0 {
			break
		}
		reverse(tour, bestStart, bestEnd)
	}
	return tour
}
