package visitation

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walk-router/internal/graph"
	"walk-router/internal/models"
)

// q places points on a grid of roughly 11 meters so that corner filling
// distances stay within the default cap
func q(x, y float64) orb.Point {
	return orb.Point{x * 0.0001, y * 0.0001}
}

type staticGraph struct {
	g *graph.Graph
}

func (s staticGraph) WithGraph(_ context.Context, fn func(g *graph.Graph) error) error {
	return fn(s.g)
}

func newTestTracker(roads, technical []orb.LineString, opts Options) *Tracker {
	g := graph.Build(roads, technical, graph.DefaultBuilderOptions())
	return NewTracker(staticGraph{g: g}, opts)
}

func coords(p orb.Point) models.Coordinates {
	return models.CoordinatesFromPoint(p)
}

func findEdge(t *testing.T, edges []models.VisitedEdge, a, b orb.Point) models.VisitedEdge {
	t.Helper()
	for _, e := range edges {
		if (e.From == coords(a) && e.To == coords(b)) || (e.From == coords(b) && e.To == coords(a)) {
			return e
		}
	}
	t.Fatalf("edge %v-%v not visited, got %+v", a, b, edges)
	return models.VisitedEdge{}
}

func assertIntervals(t *testing.T, want []models.Interval, got []models.Interval) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i].Start, got[i].Start, 1e-9)
		assert.InDelta(t, want[i].End, got[i].End, 1e-9)
	}
}

func TestSnapToEdgesSameEdge(t *testing.T) {
	tr := newTestTracker([]orb.LineString{{q(0, 0), q(10, 0)}}, nil, DefaultOptions())

	edges, err := tr.SnapToEdges(context.Background(), [][]orb.Point{{q(2, 0.1), q(5, 0.1)}})

	require.NoError(t, err)
	require.Len(t, edges, 1)
	e := edges[0]
	assert.Equal(t, coords(q(10, 0)), e.From, "the endpoint with larger x comes first")
	assert.Equal(t, coords(q(0, 0)), e.To)
	assert.False(t, e.Fully)
	assertIntervals(t, []models.Interval{iv(0.5, 0.8)}, e.Intervals)
}

func TestSnapToEdgesReversedTraceMergesOnSameKey(t *testing.T) {
	tr := newTestTracker([]orb.LineString{{q(0, 0), q(10, 0)}}, nil, DefaultOptions())

	edges, err := tr.SnapToEdges(context.Background(), [][]orb.Point{
		{q(2, 0.1), q(5, 0.1)},
		{q(6, -0.1), q(4, -0.1)},
	})

	require.NoError(t, err)
	require.Len(t, edges, 1)
	assertIntervals(t, []models.Interval{iv(0.4, 0.8)}, edges[0].Intervals)
}

func TestSnapToEdgesInsertsSharedNode(t *testing.T) {
	tr := newTestTracker([]orb.LineString{{q(0, 0), q(10, 0), q(10, 10)}}, nil, DefaultOptions())

	edges, err := tr.SnapToEdges(context.Background(), [][]orb.Point{{q(8, 0.1), q(10.1, 3)}})

	require.NoError(t, err)
	require.Len(t, edges, 2)
	horizontal := findEdge(t, edges, q(0, 0), q(10, 0))
	assertIntervals(t, []models.Interval{iv(0, 0.2)}, horizontal.Intervals)

	vertical := findEdge(t, edges, q(10, 0), q(10, 10))
	assert.Equal(t, coords(q(10, 10)), vertical.From, "vertical edges order by larger y")
	assertIntervals(t, []models.Interval{iv(0.7, 1)}, vertical.Intervals)
}

func TestSnapToEdgesFullyVisited(t *testing.T) {
	tr := newTestTracker([]orb.LineString{{q(0, 0), q(10, 0), q(10, 10)}}, nil, DefaultOptions())

	edges, err := tr.SnapToEdges(context.Background(), [][]orb.Point{{q(0, 0.1), q(5, 0.1), q(10, 0)}})

	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.True(t, edges[0].Fully)
	assert.Empty(t, edges[0].Intervals)
}

func TestSnapToEdgesFillsShortGap(t *testing.T) {
	tr := newTestTracker([]orb.LineString{{q(0, 0), q(10, 0), q(10, 1), q(20, 1)}}, nil, DefaultOptions())

	edges, err := tr.SnapToEdges(context.Background(), [][]orb.Point{{q(8, 0.1), q(12, 1.1)}})

	require.NoError(t, err)
	require.Len(t, edges, 3)
	assert.True(t, findEdge(t, edges, q(10, 0), q(10, 1)).Fully)
	assertIntervals(t, []models.Interval{iv(0, 0.2)}, findEdge(t, edges, q(0, 0), q(10, 0)).Intervals)
	assertIntervals(t, []models.Interval{iv(0.8, 1)}, findEdge(t, edges, q(10, 1), q(20, 1)).Intervals)
}

func TestSnapToEdgesSplitsOnLongGap(t *testing.T) {
	tr := newTestTracker([]orb.LineString{{q(0, 0), q(10, 0), q(10, 5), q(20, 5)}}, nil, DefaultOptions())

	edges, err := tr.SnapToEdges(context.Background(), [][]orb.Point{
		{q(5, 0.1), q(8, 0.1), q(12, 5.1), q(15, 5.1)},
	})

	require.NoError(t, err)
	require.Len(t, edges, 2)
	findEdge(t, edges, q(0, 0), q(10, 0))
	findEdge(t, edges, q(10, 5), q(20, 5))
}

func TestSnapToEdgesDoesNotBridgeOverTechnicalRoads(t *testing.T) {
	tr := newTestTracker(
		[]orb.LineString{{q(0, 0), q(10, 0)}, {q(10, 1), q(20, 1)}},
		[]orb.LineString{{q(10, 0), q(10, 1)}},
		DefaultOptions(),
	)

	edges, err := tr.SnapToEdges(context.Background(), [][]orb.Point{{q(5, 0.1), q(8, 0.1), q(12, 1.1), q(15, 1.1)}})

	require.NoError(t, err)
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.NotEqual(t, coords(q(10, 1)), e.From, "technical connector must not be visited")
	}
}

func TestSnapToEdgesIgnoresTechnicalEdgeBetweenNodes(t *testing.T) {
	tr := newTestTracker(
		[]orb.LineString{{q(0, 0), q(0, 5)}, {q(2, 0), q(2, 5)}},
		[]orb.LineString{{q(0, 0), q(2, 0)}},
		DefaultOptions(),
	)

	edges, err := tr.SnapToEdges(context.Background(), [][]orb.Point{{q(-0.1, -0.1), q(2.1, -0.1)}})

	require.NoError(t, err)
	for _, e := range edges {
		isServiceRoad := (e.From == coords(q(0, 0)) && e.To == coords(q(2, 0))) ||
			(e.From == coords(q(2, 0)) && e.To == coords(q(0, 0)))
		assert.False(t, isServiceRoad, "service road reported as walked: %+v", e)
	}
	assert.Empty(t, edges)
}

func TestSnapToEdgesConfigurableFullCoverage(t *testing.T) {
	opts := DefaultOptions()
	opts.FullCoverage = iv(0, 0.1)
	tr := newTestTracker([]orb.LineString{{q(0, 0), q(10, 0)}}, nil, opts)

	edges, err := tr.SnapToEdges(context.Background(), [][]orb.Point{{q(8, 0.1), q(10, 0.1)}})

	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.True(t, edges[0].Fully)
}

func TestSnapToEdgesEmptyGraph(t *testing.T) {
	tr := NewTracker(staticGraph{g: graph.New()}, DefaultOptions())

	edges, err := tr.SnapToEdges(context.Background(), [][]orb.Point{{q(1, 1), q(2, 2)}})

	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestCollectRejectsNonAdjacentPoints(t *testing.T) {
	g := graph.Build([]orb.LineString{{q(0, 0), q(10, 0), q(20, 0)}}, nil, graph.DefaultBuilderOptions())
	a, _ := g.Lookup(q(0, 0))
	b, _ := g.Lookup(q(10, 0))
	c, _ := g.Lookup(q(20, 0))
	tr := NewTracker(staticGraph{g: g}, DefaultOptions())

	err := tr.collect(g, []tracePoint{{p: q(5, 0), a: a, b: b}, {p: q(15, 0), a: b, b: c}}, map[edgeKey]IntervalSet{})

	var violation *ErrInvariantViolation
	require.True(t, errors.As(err, &violation))
	assert.Contains(t, violation.Reason, "3 nodes")
}

func TestMergeFoldsBothOrientations(t *testing.T) {
	existing := []models.VisitedEdge{{
		From:      coords(q(0, 0)),
		To:        coords(q(10, 0)),
		Intervals: []models.Interval{iv(0, 0.3)},
	}}
	added := []models.VisitedEdge{{
		From:      coords(q(10, 0)),
		To:        coords(q(0, 0)),
		Intervals: []models.Interval{iv(0, 0.5)},
	}}

	merged := Merge(existing, added, FullInterval())

	require.Len(t, merged, 1)
	assert.Equal(t, coords(q(10, 0)), merged[0].From)
	assert.False(t, merged[0].Fully)
	assertIntervals(t, []models.Interval{iv(0, 0.5), iv(0.7, 1)}, merged[0].Intervals)

	merged = Merge(merged, []models.VisitedEdge{{
		From:      coords(q(0, 0)),
		To:        coords(q(10, 0)),
		Intervals: []models.Interval{iv(0.2, 0.6)},
	}}, FullInterval())

	require.Len(t, merged, 1)
	assert.True(t, merged[0].Fully)
}

func TestMergeKeepsFullyVisited(t *testing.T) {
	existing := []models.VisitedEdge{{From: coords(q(0, 0)), To: coords(q(10, 0)), Fully: true}}
	added := []models.VisitedEdge{
		{From: coords(q(0, 0)), To: coords(q(10, 0)), Intervals: []models.Interval{iv(0.1, 0.2)}},
		{From: coords(q(10, 0)), To: coords(q(10, 10)), Intervals: []models.Interval{iv(0.1, 0.2)}},
	}

	merged := NewTracker(staticGraph{g: graph.New()}, DefaultOptions()).Merge(existing, added)

	require.Len(t, merged, 2)
	assert.True(t, findEdge(t, merged, q(0, 0), q(10, 0)).Fully)
	assert.False(t, findEdge(t, merged, q(10, 0), q(10, 10)).Fully)
}
