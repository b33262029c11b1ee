package routegraph

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/exp/slog"

	"walk-router/internal/graph"
)

var (
	// ErrNotInitialized is returned by Ready checks before the first graph load
	ErrNotInitialized = errors.New("route graph not initialized")
	// ErrGraphCorrupted is returned by every query after a failed revert,
	// until Load publishes a new graph
	ErrGraphCorrupted = errors.New("route graph corrupted")
)

// Route is the result of a shortest path query
type Route struct {
	Points         []orb.Point
	DistanceMeters float64
	Found          bool
}

// Service owns the walkable graph and runs one query at a time. Queries
// splice temporary nodes for off-node endpoints and always revert them
// before the next caller gets the graph.
type Service struct {
	lock      chan struct{}
	ready     chan struct{}
	readyOnce sync.Once

	// guarded by lock
	graph   *graph.Graph
	version string
	broken  error

	opts graph.BuilderOptions
}

// NewService creates a service without a graph. Queries wait until Init
// or Load has published one.
func NewService(opts graph.BuilderOptions) *Service {
	return &Service{
		lock:  make(chan struct{}, 1),
		ready: make(chan struct{}),
		opts:  opts,
	}
}

// Init builds the graph from polylines in the background
func (s *Service) Init(roads, technicalRoads []orb.LineString, version string) {
	go func() {
		slog.Info("[ROUTEGRAPH] building graph",
			"roads", len(roads), "technical_roads", len(technicalRoads), "version", version)
		g := graph.Build(roads, technicalRoads, s.opts)
		if err := s.Load(context.Background(), g, version); err != nil {
			slog.Error("[ROUTEGRAPH] failed to publish graph", "err", err)
		}
	}()
}

// Load replaces the graph, e.g. for a new map data version, and releases
// any callers waiting for initialization. g must not be shared with
// anyone else once Load is called.
func (s *Service) Load(ctx context.Context, g *graph.Graph, version string) error {
	components := len(g.Components())
	nodes, edges := g.NodeCount(), g.EdgeCount()

	select {
	case s.lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.graph = g
	s.version = version
	s.broken = nil
	s.readyOnce.Do(func() { close(s.ready) })
	<-s.lock

	slog.Info("[ROUTEGRAPH] graph ready",
		"nodes", nodes, "edges", edges, "components", components, "version", version)
	if components > 1 {
		slog.Warn("[ROUTEGRAPH] graph is not connected, some targets may be unreachable", "components", components)
	}
	return nil
}

// Ready reports whether a graph has been published
func (s *Service) Ready() error {
	select {
	case <-s.ready:
		return nil
	default:
		return ErrNotInitialized
	}
}

// WaitReady blocks until a graph has been published or ctx is done
func (s *Service) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Version returns the map data version of the current graph
func (s *Service) Version(ctx context.Context) (string, error) {
	var version string
	err := s.WithGraph(ctx, func(*graph.Graph) error {
		version = s.version
		return nil
	})
	return version, err
}

// WithGraph runs fn with exclusive access to the graph. fn must leave the
// graph as it found it.
func (s *Service) WithGraph(ctx context.Context, fn func(g *graph.Graph) error) error {
	if err := s.WaitReady(ctx); err != nil {
		return err
	}

	select {
	case s.lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.lock }()

	if s.broken != nil {
		return s.broken
	}
	return fn(s.graph)
}

// Stats returns node, edge and component counts of the current graph
func (s *Service) Stats(ctx context.Context) (graph.Stats, error) {
	var stats graph.Stats
	err := s.WithGraph(ctx, func(g *graph.Graph) error {
		stats = g.Stats()
		return nil
	})
	return stats, err
}

// GetSnappedPointOnEdge snaps p onto the nearest edge
func (s *Service) GetSnappedPointOnEdge(ctx context.Context, p orb.Point, technicalAllowed bool) (graph.SnapResult, bool, error) {
	var (
		snap graph.SnapResult
		ok   bool
	)
	err := s.WithGraph(ctx, func(g *graph.Graph) error {
		snap, ok = graph.Snap(g, p, technicalAllowed)
		return nil
	})
	return snap, ok, err
}

// GetShortestPath returns the walking path between two points as coordinates.
// A nil start, identical endpoints or an empty graph yield [end].
func (s *Service) GetShortestPath(ctx context.Context, start *orb.Point, end orb.Point, technicalAllowedAtStart, technicalAllowedAtEnd bool) ([]orb.Point, error) {
	route, err := s.Route(ctx, start, end, technicalAllowedAtStart, technicalAllowedAtEnd)
	if err != nil {
		return nil, err
	}
	return route.Points, nil
}

// Route is GetShortestPath with the path length attached
func (s *Service) Route(ctx context.Context, start *orb.Point, end orb.Point, technicalAllowedAtStart, technicalAllowedAtEnd bool) (Route, error) {
	if start == nil || *start == end {
		pathQueryTotal.WithLabelValues("trivial").Inc()
		return trivialRoute(end, 0), nil
	}

	var route Route
	err := s.WithGraph(ctx, func(g *graph.Graph) error {
		queryStart := time.Now()
		route = s.route(g, *start, end, technicalAllowedAtStart, technicalAllowedAtEnd)
		pathQueryDuration.Observe(time.Since(queryStart).Seconds())

		slog.Debug("[ROUTEGRAPH] path query",
			"points", len(route.Points), "distance_m", route.DistanceMeters,
			"found", route.Found, "took", time.Since(queryStart))
		return nil
	})
	if err != nil {
		return Route{}, fmt.Errorf("failed to query route: %w", err)
	}

	switch {
	case route.Found:
		pathQueryTotal.WithLabelValues("found").Inc()
	default:
		pathQueryTotal.WithLabelValues("unreachable").Inc()
	}
	return route, nil
}

func trivialRoute(end orb.Point, distance float64) Route {
	return Route{Points: []orb.Point{end}, DistanceMeters: distance, Found: distance == 0}
}

// route must be called with the lock held
func (s *Service) route(g *graph.Graph, start, end orb.Point, technicalAllowedAtStart, technicalAllowedAtEnd bool) Route {
	if g == nil || g.Empty() {
		return trivialRoute(end, math.Inf(1))
	}

	startSnap, ok := graph.Snap(g, start, technicalAllowedAtStart)
	if !ok {
		return trivialRoute(end, math.Inf(1))
	}
	endSnap, ok := graph.Snap(g, end, technicalAllowedAtEnd)
	if !ok {
		return trivialRoute(end, math.Inf(1))
	}

	var splices []graph.Splice
	defer s.revert(g, &splices)

	from := spliceSnap(g, startSnap, &splices)
	to := spliceSnap(g, endSnap, &splices)

	path := graph.ShortestPath(g, from, to, graph.SearchOptions{
		TechnicalAllowed: technicalAllowedAtEnd,
	})
	return Route{
		Points:         path.Points(g),
		DistanceMeters: path.Distance,
		Found:          path.Found,
	}
}

// spliceSnap returns the node for a snap result, inserting a temporary node
// when the snap lies inside an edge
func spliceSnap(g *graph.Graph, snap graph.SnapResult, splices *[]graph.Splice) graph.NodeID {
	if snap.OnNode() {
		return snap.A
	}

	a, b := resolveEdge(g, snap, *splices)
	sp, err := g.Split(a, b, snap.Point)
	if err != nil {
		panic(fmt.Sprintf("routegraph: cannot splice snap point into %d-%d: %v", a, b, err))
	}
	if sp.Inserted() {
		tempNodesTotal.Inc()
		*splices = append(*splices, sp)
	}
	return sp.Temp
}

// resolveEdge maps a snap taken before earlier splices onto the sub-edge
// that now holds its point
func resolveEdge(g *graph.Graph, snap graph.SnapResult, splices []graph.Splice) (graph.NodeID, graph.NodeID) {
	a, b := snap.A, snap.B
	for i := len(splices) - 1; i >= 0 && !g.Connected(a, b); i-- {
		sp := splices[i]
		if !(sp.A == a && sp.B == b) && !(sp.A == b && sp.B == a) {
			continue
		}
		pa := g.Point(a)
		if graph.Distance(pa, snap.Point) < graph.Distance(pa, g.Point(sp.Temp)) {
			b = sp.Temp
		} else {
			a = sp.Temp
		}
	}
	return a, b
}

// revert undoes splices in reverse order and must be called with the lock
// held. A failure leaves the graph in an unknown state: the service is
// marked broken so later queries fail, and the current one panics.
func (s *Service) revert(g *graph.Graph, splices *[]graph.Splice) {
	for i := len(*splices) - 1; i >= 0; i-- {
		if err := g.Unsplice((*splices)[i]); err != nil {
			s.broken = fmt.Errorf("%w: %v", ErrGraphCorrupted, err)
			slog.Error("[ROUTEGRAPH] revert failed, refusing further queries", "err", err)
			panic(fmt.Sprintf("routegraph: graph corrupted during revert: %v", err))
		}
	}
	*splices = nil
}
