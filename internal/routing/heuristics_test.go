package routing

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineDist places point i at x = i
func lineDist(i, j int) float64 {
	return math.Abs(float64(i - j))
}

func randomMatrix(rng *rand.Rand, n int) DistanceFunc {
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = rng.Float64() * 1000
		ys[i] = rng.Float64() * 1000
	}
	return func(i, j int) float64 {
		return math.Hypot(xs[i]-xs[j], ys[i]-ys[j])
	}
}

func allStrategies() []Strategy {
	return []Strategy{
		NearestNeighbor{},
		TwoOpt{},
		Annealing{Seed: 7, MaxIterations: 3000},
		Divorced{Cycle: DefaultLinKernighan()},
		Sum{First: NearestNeighbor{}, Second: TwoOpt{}},
		Multiply{A: TwoOpt{}, B: Divorced{Cycle: DefaultLinKernighan()}, Parallel: true},
	}
}

func assertPermutation(t *testing.T, input, output []int) {
	t.Helper()
	a := append([]int(nil), input...)
	b := append([]int(nil), output...)
	sort.Ints(a)
	sort.Ints(b)
	assert.Equal(t, a, b, "output must be a permutation of the input")
}

func TestStrategiesKeepPinnedPositions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, s := range allStrategies() {
		t.Run(s.Name(), func(t *testing.T) {
			for trial := 0; trial < 25; trial++ {
				n := 3 + rng.Intn(9)
				dist := randomMatrix(rng, n)
				order := rng.Perm(n)
				pinned := make([]bool, n)
				for k := range pinned {
					pinned[k] = rng.Intn(3) == 0
				}
				input := append([]int(nil), order...)

				result := s.Run(context.Background(), order, dist, pinned)

				assert.Equal(t, input, order, "input must not be mutated")
				assertPermutation(t, order, result)
				for k, p := range pinned {
					if p {
						assert.Equal(t, order[k], result[k], "pinned position %d moved", k)
					}
				}
			}
		})
	}
}

func TestImprovingStrategiesNeverWorsen(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	improving := []Strategy{
		TwoOpt{},
		Annealing{Seed: 11, MaxIterations: 2000},
		Divorced{Cycle: DefaultLinKernighan()},
	}

	for _, s := range improving {
		for trial := 0; trial < 20; trial++ {
			n := 4 + rng.Intn(8)
			dist := randomMatrix(rng, n)
			order := rng.Perm(n)

			result := s.Run(context.Background(), order, dist, nil)

			assert.LessOrEqual(t, PathCost(result, dist), PathCost(order, dist)+1e-9, s.Name())
		}
	}
}

func TestShortInputsUnchanged(t *testing.T) {
	for _, s := range allStrategies() {
		for _, order := range [][]int{{0}, {1, 0}} {
			assert.Equal(t, order, s.Run(context.Background(), order, lineDist, nil), s.Name())
		}
	}
}

func TestCanReverse(t *testing.T) {
	tests := []struct {
		name       string
		pinned     []bool
		start, end int
		want       bool
	}{
		{"no pins", nil, 0, 4, true},
		{"pin outside segment", []bool{true, false, false, false}, 1, 3, true},
		{"pin at odd segment midpoint", []bool{false, false, true, false, false}, 1, 3, true},
		{"pin off midpoint", []bool{false, true, false, false, false}, 1, 3, false},
		{"even segment has no fixed point", []bool{false, true, false, false}, 1, 2, false},
		{"two pins", []bool{false, false, true, true, false}, 1, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canReverse(tt.pinned, tt.start, tt.end))
		})
	}
}

func TestNearestNeighborOnLine(t *testing.T) {
	result := NearestNeighbor{}.Run(context.Background(), []int{0, 3, 1, 2}, lineDist, nil)
	assert.Equal(t, []int{0, 1, 2, 3}, result)
}

func TestNearestNeighborMeasuresFromPinnedAnchor(t *testing.T) {
	// 3 is pinned at the front, so the walk continues with its neighbours
	result := NearestNeighbor{}.Run(context.Background(), []int{3, 0, 6, 1}, lineDist, []bool{true})
	assert.Equal(t, []int{3, 1, 0, 6}, result)
}

func TestTwoOptUncrossesPath(t *testing.T) {
	result := TwoOpt{}.Run(context.Background(), []int{0, 2, 1, 3}, lineDist, nil)

	assert.Equal(t, []int{0, 1, 2, 3}, result)
	assert.Equal(t, 3.0, PathCost(result, lineDist))
}

func TestTwoOptRespectsPins(t *testing.T) {
	// reversing [1,2] would move the pinned 2
	result := TwoOpt{}.Run(context.Background(), []int{0, 2, 1, 3}, lineDist, []bool{false, true, false, false})
	assert.Equal(t, 2, result[1])
}

func TestLinKernighanImproves(t *testing.T) {
	order := []int{0, 2, 1, 3}
	result := Divorced{Cycle: DefaultLinKernighan()}.Run(context.Background(), order, lineDist, nil)

	assertPermutation(t, order, result)
	assert.Less(t, PathCost(result, lineDist), PathCost(order, lineDist))
}

func TestLinKernighanOnCycle(t *testing.T) {
	xs := []float64{0, 2, 1, 3, 0, 2, 1, 3}
	ys := []float64{0, 0, 0, 0, 1, 1, 1, 1}
	dist := func(i, j int) float64 { return math.Hypot(xs[i]-xs[j], ys[i]-ys[j]) }
	order := []int{0, 5, 2, 7, 4, 1, 6, 3}

	result := DefaultLinKernighan().Run(context.Background(), order, dist, nil)

	assertPermutation(t, order, result)
	assert.Less(t, cycleCost(result, dist), cycleCost(order, dist))
}

func TestAnnealingIsReproducibleWithSeed(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	dist := randomMatrix(rng, 10)
	order := rng.Perm(10)
	sa := Annealing{Seed: 99, MaxIterations: 5000}

	first := sa.Run(context.Background(), order, dist, nil)
	second := sa.Run(context.Background(), order, dist, nil)

	assert.Equal(t, first, second)
}

func TestAnnealingTooFewFreePositions(t *testing.T) {
	order := []int{2, 0, 1}
	result := Annealing{Seed: 1}.Run(context.Background(), order, lineDist, []bool{true, true, false})
	assert.Equal(t, order, result)
}

func TestCancelledRunsKeepInput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	order := []int{0, 2, 1, 3, 5, 4}

	for _, s := range []Strategy{TwoOpt{}, Annealing{Seed: 1}, DefaultLinKernighan()} {
		assert.Equal(t, order, s.Run(ctx, order, lineDist, nil), s.Name())
	}
}

type fixedStrategy struct {
	name   string
	result []int
	seen   [][]int
}

func (f *fixedStrategy) Name() string { return f.name }

func (f *fixedStrategy) Run(_ context.Context, order []int, _ DistanceFunc, _ []bool) []int {
	f.seen = append(f.seen, append([]int(nil), order...))
	return append([]int(nil), f.result...)
}

func TestSumChains(t *testing.T) {
	first := &fixedStrategy{name: "a", result: []int{2, 1, 0}}
	second := &fixedStrategy{name: "b", result: []int{0, 1, 2}}

	result := Sum{First: first, Second: second}.Run(context.Background(), []int{0, 1, 2}, lineDist, nil)

	assert.Equal(t, []int{0, 1, 2}, result)
	require.Len(t, second.seen, 1)
	assert.Equal(t, []int{2, 1, 0}, second.seen[0])
	assert.Equal(t, "a+b", Sum{First: first, Second: second}.Name())
}

func TestMultiplyKeepsCheaper(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		worse := &fixedStrategy{name: "worse", result: []int{0, 2, 1, 3}}
		better := &fixedStrategy{name: "better", result: []int{0, 1, 2, 3}}

		result := Multiply{A: worse, B: better, Parallel: parallel}.Run(context.Background(), []int{3, 2, 1, 0}, lineDist, nil)

		assert.Equal(t, []int{0, 1, 2, 3}, result)
		assert.Equal(t, [][]int{{3, 2, 1, 0}}, worse.seen)
		assert.Equal(t, [][]int{{3, 2, 1, 0}}, better.seen)
	}
}

func TestMultiplyTieKeepsFirst(t *testing.T) {
	a := &fixedStrategy{name: "a", result: []int{0, 1, 2}}
	b := &fixedStrategy{name: "b", result: []int{2, 1, 0}}

	result := Multiply{A: a, B: b}.Run(context.Background(), []int{1, 0, 2}, lineDist, nil)

	assert.Equal(t, []int{0, 1, 2}, result)
}

type cycleProbe struct {
	rotateTo []int
	order    []int
	pinned   []bool
	dummyD   float64
}

func (c *cycleProbe) Name() string { return "probe" }

func (c *cycleProbe) Run(_ context.Context, order []int, dist DistanceFunc, pinned []bool) []int {
	c.order = append([]int(nil), order...)
	c.pinned = append([]bool(nil), pinned...)
	c.dummyD = dist(order[0], order[len(order)-1])
	return c.rotateTo
}

func TestDivorcedCutsAtDummy(t *testing.T) {
	probe := &cycleProbe{rotateTo: []int{1, 3, 2, 0}}

	result := Divorced{Cycle: probe}.Run(context.Background(), []int{0, 1, 2}, lineDist, []bool{false, true, false})

	assert.Equal(t, []int{0, 1, 2, 3}, probe.order)
	assert.Equal(t, []bool{false, true, false, true}, probe.pinned)
	assert.Equal(t, 0.0, probe.dummyD)
	assert.Equal(t, []int{2, 0, 1}, result)
}

func TestParseStrategy(t *testing.T) {
	opts := StrategyOptions{Annealing: DefaultAnnealing(), LinKernighan: DefaultLinKernighan(), Parallel: true}

	s, err := ParseStrategy("nn+2opt*lk", opts)
	require.NoError(t, err)
	assert.Equal(t, "nn+2opt*lk", s.Name())
	sum, ok := s.(Sum)
	require.True(t, ok, "+ binds looser than *")
	product, ok := sum.Second.(Multiply)
	require.True(t, ok)
	assert.True(t, product.Parallel)
	assert.IsType(t, Divorced{}, product.B)

	s, err = ParseStrategy(" ( NN + 2opt ) * sa ", opts)
	require.NoError(t, err)
	assert.IsType(t, Multiply{}, s)
	assert.Equal(t, "nn+2opt*sa", s.Name())
}

func TestParseStrategyErrors(t *testing.T) {
	for _, expr := range []string{"", "   ", "foo", "nn+", "nn)", "(nn", "nn$2opt", "*nn", "nn 2opt"} {
		_, err := ParseStrategy(expr, StrategyOptions{})
		assert.ErrorIs(t, err, ErrUnknownAlgorithm, "expression %q", expr)
	}
}
