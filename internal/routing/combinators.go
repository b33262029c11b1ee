package routing

import (
	"context"
	"sync"
)

// Divorced turns a closed-tour algorithm into an open-path one. A dummy
// stop at zero distance from every point is appended and pinned last; the
// resulting cycle is cut open at the dummy.
type Divorced struct {
	Cycle Strategy
}

func (d Divorced) Name() string { return d.Cycle.Name() }

func (d Divorced) Run(ctx context.Context, order []int, dist DistanceFunc, pinned []bool) []int {
	n := len(order)
	if n <= 2 {
		return cloneOrder(order)
	}

	dummy := 0
	for _, v := range order {
		if v >= dummy {
			dummy = v + 1
		}
	}

	extended := append(cloneOrder(order), dummy)
	extendedPinned := make([]bool, n+1)
	for k := 0; k < n; k++ {
		extendedPinned[k] = isPinned(pinned, k)
	}
	extendedPinned[n] = true

	withDummy := func(i, j int) float64 {
		if i == dummy || j == dummy {
			return 0
		}
		return dist(i, j)
	}

	tour := d.Cycle.Run(ctx, extended, withDummy, extendedPinned)

	cut := n
	for k, v := range tour {
		if v == dummy {
			cut = k
			break
		}
	}
	result := make([]int, 0, n)
	result = append(result, tour[cut+1:]...)
	result = append(result, tour[:cut]...)
	return result
}

// Sum runs First and feeds its result into Second
type Sum struct {
	First, Second Strategy
}

func (s Sum) Name() string { return s.First.Name() + "+" + s.Second.Name() }

func (s Sum) Run(ctx context.Context, order []int, dist DistanceFunc, pinned []bool) []int {
	return s.Second.Run(ctx, s.First.Run(ctx, order, dist, pinned), dist, pinned)
}

// Multiply runs A and B on the same input and keeps the cheaper path. On a
// tie A wins. With Parallel set both run concurrently; dist must then be
// safe for concurrent reads.
type Multiply struct {
	A, B     Strategy
	Parallel bool
}

func (m Multiply) Name() string { return m.A.Name() + "*" + m.B.Name() }

func (m Multiply) Run(ctx context.Context, order []int, dist DistanceFunc, pinned []bool) []int {
	var a, b []int
	if m.Parallel {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			a = m.A.Run(ctx, order, dist, pinned)
		}()
		go func() {
			defer wg.Done()
			b = m.B.Run(ctx, order, dist, pinned)
		}()
		wg.Wait()
	} else {
		a = m.A.Run(ctx, order, dist, pinned)
		b = m.B.Run(ctx, order, dist, pinned)
	}

	if PathCost(b, dist) < PathCost(a, dist) {
		return b
	}
	return a
}
