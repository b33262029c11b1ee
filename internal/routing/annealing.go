package routing

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Annealing defaults
const (
	DefaultInitialTemperature = 1000.0
	DefaultCoolingRate        = 0.995
	DefaultMinTemperature     = 1e-3
	DefaultMaxIterations      = 20000
)

// Annealing is simulated annealing over swaps of two free positions. A
// worse order is accepted with probability exp((best-new)/T); T shrinks
// geometrically each iteration. The best order seen is returned, also when
// ctx is cancelled mid-run.
type Annealing struct {
	InitialTemperature float64
	CoolingRate        float64
	MinTemperature     float64
	MaxIterations      int
	// Seed makes runs reproducible; 0 seeds from the clock
	Seed int64
}

// DefaultAnnealing returns the annealing defaults
func DefaultAnnealing() Annealing {
	return Annealing{
		InitialTemperature: DefaultInitialTemperature,
		CoolingRate:        DefaultCoolingRate,
		MinTemperature:     DefaultMinTemperature,
		MaxIterations:      DefaultMaxIterations,
	}
}

func (Annealing) Name() string { return "sa" }

func (a Annealing) withDefaults() Annealing {
	d := DefaultAnnealing()
	if a.InitialTemperature <= 0 {
		a.InitialTemperature = d.InitialTemperature
	}
	if a.CoolingRate <= 0 || a.CoolingRate >= 1 {
		a.CoolingRate = d.CoolingRate
	}
	if a.MinTemperature <= 0 {
		a.MinTemperature = d.MinTemperature
	}
	if a.MaxIterations <= 0 {
		a.MaxIterations = d.MaxIterations
	}
	return a
}

func (a Annealing) Run(ctx context.Context, order []int, dist DistanceFunc, pinned []bool) []int {
	a = a.withDefaults()
	tour := cloneOrder(order)
	free := freePositions(pinned, len(tour))
	if len(free) < 2 {
		return tour
	}

	seed := a.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	current := PathCost(tour, dist)
	best := cloneOrder(tour)
	bestCost := current

	temperature := a.InitialTemperature
	for iter := 0; iter < a.MaxIterations && temperature > a.MinTemperature; iter++ {
		if ctx.Err() != nil {
			break
		}

		i := rng.Intn(len(free))
		j := rng.Intn(len(free) - 1)
		if j >= i {
			j++
		}
		p, q := free[i], free[j]
		tour[p], tour[q] = tour[q], tour[p]

		candidate := PathCost(tour, dist)
		if candidate <= current || rng.Float64() < math.Exp((bestCost-candidate)/temperature) {
			current = candidate
			if current < bestCost {
				bestCost = current
				copy(best, tour)
			}
		} else {
			tour[p], tour[q] = tour[q], tour[p]
		}

		temperature *= a.CoolingRate
	}
	return best
}
