package routing

import (
	"context"
	"math"
	"sort"
)

// Lin-Kernighan defaults
const (
	DefaultLKMaxDepth  = 5
	DefaultLKNeighbors = 8
)

// LinKernighan improves a closed tour with variable-depth chains of
// segment reversals. From each tour edge it keeps reversing towards the
// nearest candidate neighbours, allowing temporarily worse tours while the
// chain still gains over the broken edge, and applies the best tour seen
// along the chain. Use it through Divorced for open paths.
type LinKernighan struct {
	MaxDepth  int
	Neighbors int
}

// DefaultLinKernighan returns the Lin-Kernighan defaults
func DefaultLinKernighan() LinKernighan {
	return LinKernighan{MaxDepth: DefaultLKMaxDepth, Neighbors: DefaultLKNeighbors}
}

func (LinKernighan) Name() string { return "lk" }

func (lk LinKernighan) withDefaults() LinKernighan {
	if lk.MaxDepth <= 0 {
		lk.MaxDepth = DefaultLKMaxDepth
	}
	if lk.Neighbors <= 0 {
		lk.Neighbors = DefaultLKNeighbors
	}
	return lk
}

type segment struct{ start, end int }

func (lk LinKernighan) Run(ctx context.Context, order []int, dist DistanceFunc, pinned []bool) []int {
	lk = lk.withDefaults()
	tour := cloneOrder(order)
	n := len(tour)
	if n < 4 || len(freePositions(pinned, n)) < 2 {
		return tour
	}

	candidates := lk.candidates(tour, dist)
	cost := cycleCost(tour, dist)

	for improved := true; improved; {
		improved = false
		for base := 0; base < n; base++ {
			if ctx.Err() != nil {
				return tour
			}
			if next, nextCost, ok := lk.chain(tour, base, cost, dist, pinned, candidates); ok {
				tour, cost = next, nextCost
				improved = true
			}
		}
	}
	return tour
}

// candidates lists, for every point, its nearest other points
func (lk LinKernighan) candidates(tour []int, dist DistanceFunc) map[int][]int {
	result := make(map[int][]int, len(tour))
	for _, v := range tour {
		others := make([]int, 0, len(tour)-1)
		for _, u := range tour {
			if u != v {
				others = append(others, u)
			}
		}
		sort.SliceStable(others, func(i, j int) bool { return dist(v, others[i]) < dist(v, others[j]) })
		if len(others) > lk.Neighbors {
			others = others[:lk.Neighbors]
		}
		result[v] = others
	}
	return result
}

// chain breaks the edge leaving position base and follows reversals up to
// MaxDepth deep. It reports the best tour found if it beats cost.
func (lk LinKernighan) chain(tour []int, base int, cost float64, dist DistanceFunc, pinned []bool, candidates map[int][]int) ([]int, float64, bool) {
	n := len(tour)
	current := cloneOrder(tour)
	currentCost := cost
	broken := dist(tour[base], tour[(base+1)%n])
	if math.IsInf(broken, 1) || math.IsNaN(broken) {
		broken = 0
	}

	var best []int
	bestCost := cost
	tried := make(map[segment]bool)
	var position map[int]int

	for depth := 0; depth < lk.MaxDepth; depth++ {
		position = positionsOf(current, position)
		start := (base + 1) % n
		lastEnd := n - 1
		if start == 0 {
			// prev is the last position, which must stay outside the segment
			lastEnd = n - 2
		}

		bestDelta := math.Inf(1)
		var move segment
		found := false
		for _, v := range candidates[current[base]] {
			end := position[v]
			if end <= start || end > lastEnd {
				continue
			}
			s := segment{start, end}
			if tried[s] || !canReverse(pinned, start, end) {
				continue
			}
			if delta := reversalDelta(current, start, end, dist, true); delta < bestDelta {
				bestDelta, move, found = delta, s, true
			}
		}
		// positive gain criterion: the chain may not lose more than the broken edge
		if !found || currentCost+bestDelta >= cost+broken {
			break
		}

		reverse(current, move.start, move.end)
		currentCost += bestDelta
		tried[move] = true

		if currentCost < bestCost-improvementEpsilon {
			bestCost = currentCost
			best = cloneOrder(current)
		}
	}

	if best == nil {
		return nil, 0, false
	}
	// recompute to drop accumulated rounding
	return best, cycleCost(best, dist), true
}

// positionsOf maps each point to its position
func positionsOf(tour []int, positions map[int]int) map[int]int {
	if positions == nil {
		positions = make(map[int]int, len(tour))
	}
	for k, v := range tour {
		positions[v] = k
	}
	return positions
}
