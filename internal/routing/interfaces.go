package routing

import (
	"context"
	"errors"
	"fmt"
)

// DistanceFunc returns the walking distance from point i to point j
type DistanceFunc func(i, j int) float64

// Strategy reorders points to shorten the walk through them. order holds
// point indices; pinned[k] marks positions whose point must stay put. Run
// returns a new slice and never mutates order.
type Strategy interface {
	Name() string
	Run(ctx context.Context, order []int, dist DistanceFunc, pinned []bool) []int
}

// ErrNoStages is returned when a plan is requested for an empty stage list
var ErrNoStages = errors.New("no stages to plan")

// ErrUnknownAlgorithm is returned for algorithm expressions that do not parse
var ErrUnknownAlgorithm = errors.New("unknown optimization algorithm")

// ErrRoutingFailed is returned when no valid route solution exists
type ErrRoutingFailed struct {
	Reason   string
	Variants int
}

func (e *ErrRoutingFailed) Error() string {
	return fmt.Sprintf("routing failed: %s", e.Reason)
}
