package routing

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/slog"

	"walk-router/internal/database"
	"walk-router/internal/distance"
	"walk-router/internal/models"
)

// DefaultMaxVariants caps how many concrete region assignments are tried
const DefaultMaxVariants = 512

// DefaultAlgorithm is the strategy expression used when none is configured
const DefaultAlgorithm = "nn+2opt*lk"

// VersionSource reports the map data version the route graph was built from
type VersionSource interface {
	Version(ctx context.Context) (string, error)
}

// Options configures the optimizer
type Options struct {
	Strategy        Strategy
	MaxVariants     int
	WalkingSpeedMps float64
}

// StageRouteOptimizer orders stages to minimize the total walk. Stages with
// alternative regions are expanded into every concrete choice and the
// cheapest ordering over all choices wins.
type StageRouteOptimizer struct {
	paths    distance.PathFinder
	versions VersionSource
	regions  *distance.RegionCache
	opts     Options
}

// NewStageRouteOptimizer creates an optimizer. versions may be nil when the
// region cache version is managed by the caller.
func NewStageRouteOptimizer(paths distance.PathFinder, versions VersionSource, regions *distance.RegionCache, opts Options) *StageRouteOptimizer {
	if opts.Strategy == nil {
		opts.Strategy = Sum{
			First:  NearestNeighbor{},
			Second: Multiply{A: TwoOpt{}, B: Divorced{Cycle: DefaultLinKernighan()}},
		}
	}
	if opts.MaxVariants <= 0 {
		opts.MaxVariants = DefaultMaxVariants
	}
	if regions == nil {
		regions = distance.NewRegionCache(nil, "")
	}
	return &StageRouteOptimizer{
		paths:    paths,
		versions: versions,
		regions:  regions,
		opts:     opts,
	}
}

// Algorithm returns the name of the configured strategy
func (o *StageRouteOptimizer) Algorithm() string {
	return o.opts.Strategy.Name()
}

// stop is a concrete place a stage is visited at. regionID is empty for
// the live position.
type stop struct {
	regionID string
	point    models.Coordinates
}

func stageStops(s models.Stage) []stop {
	if s.IsUserPosition() {
		if s.Position == nil {
			return nil
		}
		return []stop{{point: *s.Position}}
	}
	stops := make([]stop, len(s.Regions))
	for i, r := range s.Regions {
		stops[i] = stop{regionID: r.ID, point: r.Center}
	}
	return stops
}

func validateStages(stages []models.Stage) error {
	if len(stages) == 0 {
		return ErrNoStages
	}
	users := 0
	for i, s := range stages {
		switch {
		case s.IsUserPosition():
			users++
			if s.Position == nil {
				return &ErrRoutingFailed{Reason: fmt.Sprintf("stage %d has no position", i)}
			}
		case len(s.Regions) == 0:
			return &ErrRoutingFailed{Reason: fmt.Sprintf("stage %d has no regions", i)}
		}
	}
	if users > 1 {
		return &ErrRoutingFailed{Reason: "more than one user position stage"}
	}
	return nil
}

// run holds the distance state of one optimization
type run struct {
	calc    *distance.GraphCalculator
	regions *distance.RegionCache
}

func (o *StageRouteOptimizer) newRun(ctx context.Context, stages []models.Stage) *run {
	if o.versions != nil {
		if version, err := o.versions.Version(ctx); err == nil {
			o.regions.SetVersion(version)
		}
	}

	calc := distance.NewGraphCalculator(o.paths, o.opts.WalkingSpeedMps)
	for _, s := range stages {
		if s.IsUserPosition() && s.Position != nil {
			calc.AllowTechnicalFrom(*s.Position)
		}
	}
	return &run{calc: calc, regions: o.regions}
}

func (r *run) distance(ctx context.Context, a, b stop) (float64, error) {
	if a.regionID != "" && b.regionID != "" {
		if a.regionID == b.regionID {
			return 0, nil
		}
		if d, ok := r.regions.Get(ctx, a.regionID, b.regionID); ok {
			return d, nil
		}
	}

	res, err := r.calc.GetDistance(ctx, a.point, b.point)
	if err != nil {
		return 0, err
	}

	if a.regionID != "" && b.regionID != "" {
		if err := r.regions.Set(ctx, a.regionID, b.regionID, res.DistanceMeters); err != nil {
			slog.Warn("[CACHE] failed to persist region distance", "a", a.regionID, "b", b.regionID, "err", err)
		}
	}
	return res.DistanceMeters, nil
}

// matrix computes the distances between all stops of one variant
func (r *run) matrix(ctx context.Context, stops []stop) ([][]float64, error) {
	n := len(stops)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			if i == j {
				continue
			}
			d, err := r.distance(ctx, stops[i], stops[j])
			if err != nil {
				return nil, err
			}
			m[i][j] = d
		}
	}
	return m, nil
}

func regionPairs(stages []models.Stage) []database.RegionPair {
	var ids []string
	seen := make(map[string]bool)
	for _, s := range stages {
		for _, r := range s.Regions {
			if !seen[r.ID] {
				seen[r.ID] = true
				ids = append(ids, r.ID)
			}
		}
	}

	var pairs []database.RegionPair
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := models.RegionPair(ids[i], ids[j])
			pairs = append(pairs, database.RegionPair{A: a, B: b})
		}
	}
	return pairs
}

// expandVariants enumerates concrete stage lists depth first, one region
// per stage. It reports whether the limit cut the enumeration short.
func expandVariants(stages []models.Stage, limit int) ([][]models.Stage, bool) {
	var (
		variants  [][]models.Stage
		truncated bool
	)
	current := make([]models.Stage, len(stages))

	var expand func(k int)
	expand = func(k int) {
		if len(variants) >= limit {
			truncated = true
			return
		}
		if k == len(stages) {
			variants = append(variants, append([]models.Stage(nil), current...))
			return
		}
		s := stages[k]
		if !s.HasAlternatives() {
			current[k] = s
			expand(k + 1)
			return
		}
		for _, region := range s.Regions {
			current[k] = s.WithRegion(region)
			expand(k + 1)
		}
	}
	expand(0)
	return variants, truncated
}

type candidate struct {
	stages []models.Stage
	stops  []stop
	cost   float64
}

// FindShortPathAndStages picks a region for every stage with alternatives
// and orders the stages so the total walk is as short as the strategy
// finds. Immutable stages keep their index. The returned path concatenates
// the walking paths between consecutive stops.
func (o *StageRouteOptimizer) FindShortPathAndStages(ctx context.Context, stages []models.Stage) (*models.PlannedRoute, error) {
	start := time.Now()
	if err := validateStages(stages); err != nil {
		return nil, err
	}

	r := o.newRun(ctx, stages)
	if err := r.regions.Warm(ctx, regionPairs(stages)); err != nil {
		slog.Warn("[CACHE] failed to warm region distances", "err", err)
	}

	variants, truncated := expandVariants(stages, o.opts.MaxVariants)
	if truncated {
		slog.Warn("[OPTIMIZER] variant limit reached, evaluating a subset",
			"limit", o.opts.MaxVariants)
	}

	pinned := make([]bool, len(stages))
	for i, s := range stages {
		pinned[i] = s.Immutable()
	}

	var best *candidate
	evaluated := 0
	for _, variant := range variants {
		if ctx.Err() != nil {
			if best == nil {
				return nil, ctx.Err()
			}
			slog.Warn("[OPTIMIZER] cancelled, returning best route so far", "evaluated", evaluated)
			break
		}

		c, err := o.evaluate(ctx, r, variant, pinned)
		if err != nil {
			if best != nil && ctx.Err() != nil {
				break
			}
			return nil, fmt.Errorf("failed to evaluate stage variant: %w", err)
		}
		evaluated++
		if best == nil || c.cost < best.cost {
			best = c
		}
	}

	optimizerRunsTotal.WithLabelValues(o.Algorithm()).Inc()
	optimizerVariants.Observe(float64(evaluated))

	if best == nil || math.IsInf(best.cost, 1) {
		return nil, &ErrRoutingFailed{Reason: "some stages are unreachable", Variants: evaluated}
	}

	path, err := r.fullPath(ctx, best.stops)
	if err != nil {
		return nil, err
	}

	points := make([]models.Coordinates, len(best.stops))
	for i, s := range best.stops {
		points[i] = s.point
	}

	slog.Info("[TIMING] stage route optimized",
		"stages", len(stages), "variants", evaluated, "algorithm", o.Algorithm(),
		"distance_m", best.cost, "took", time.Since(start))

	return &models.PlannedRoute{
		Stages:              best.stages,
		StopPoints:          points,
		Path:                path,
		TotalDistanceMeters: best.cost,
		VariantsEvaluated:   evaluated,
		Algorithm:           o.Algorithm(),
	}, nil
}

// evaluate orders one concrete variant
func (o *StageRouteOptimizer) evaluate(ctx context.Context, r *run, variant []models.Stage, pinned []bool) (*candidate, error) {
	stops := make([]stop, len(variant))
	for i, s := range variant {
		stops[i] = stageStops(s)[0]
	}

	m, err := r.matrix(ctx, stops)
	if err != nil {
		return nil, err
	}
	dist := func(i, j int) float64 { return m[i][j] }

	order := Identity(len(variant))
	if len(variant) > 2 {
		order = o.opts.Strategy.Run(ctx, order, dist, pinned)
	}

	c := &candidate{
		stages: make([]models.Stage, len(order)),
		stops:  make([]stop, len(order)),
		cost:   PathCost(order, dist),
	}
	for k, idx := range order {
		c.stages[k] = variant[idx]
		c.stops[k] = stops[idx]
	}
	return c, nil
}

func (r *run) fullPath(ctx context.Context, stops []stop) ([]models.Coordinates, error) {
	if len(stops) == 1 {
		return []models.Coordinates{stops[0].point}, nil
	}

	var path []models.Coordinates
	for k := 1; k < len(stops); k++ {
		leg, _, err := r.calc.Path(ctx, stops[k-1].point, stops[k].point)
		if err != nil {
			return nil, fmt.Errorf("failed to build route path: %w", err)
		}
		if len(path) > 0 && len(leg) > 0 && leg[0] == path[len(path)-1] {
			leg = leg[1:]
		}
		path = append(path, leg...)
	}
	return path, nil
}

// GetDistance returns the walking distance between two stages. Stages
// with alternatives answer with their closest candidate pair.
func (o *StageRouteOptimizer) GetDistance(ctx context.Context, a, b models.Stage) (float64, error) {
	from, to := stageStops(a), stageStops(b)
	if len(from) == 0 || len(to) == 0 {
		return 0, &ErrRoutingFailed{Reason: "stage has no location"}
	}

	r := o.newRun(ctx, []models.Stage{a, b})
	best := math.Inf(1)
	for _, x := range from {
		for _, y := range to {
			d, err := r.distance(ctx, x, y)
			if err != nil {
				return 0, err
			}
			best = math.Min(best, d)
		}
	}
	return best, nil
}
