package graph

import (
	"container/heap"
	"math"

	"github.com/paulmach/orb"
)

// SearchOptions configures a shortest path search
type SearchOptions struct {
	// TechnicalAllowed lifts the technical road restriction entirely
	TechnicalAllowed bool
	// MaxDistance stops the search once the frontier exceeds it; 0 is unbounded
	MaxDistance float64
}

// Path is the result of a search. An unreachable end yields Found=false,
// Nodes=[end] and an infinite Distance.
type Path struct {
	Nodes         []NodeID
	Distance      float64
	Found         bool
	UsesTechnical bool
}

// Points translates the node path to coordinates
func (p Path) Points(g *Graph) []orb.Point {
	points := make([]orb.Point, len(p.Nodes))
	for i, id := range p.Nodes {
		points[i] = g.Point(id)
	}
	return points
}

// ShortestPath runs Dijkstra from start to end. Technical edges may be used
// to leave the start, but once a node reached over a public edge has been
// settled they are no longer relaxed, unless opts.TechnicalAllowed is set.
func ShortestPath(g *Graph, start, end NodeID, opts SearchOptions) Path {
	if start == end {
		return Path{Nodes: []NodeID{end}, Found: true}
	}
	if !g.Has(start) || !g.Has(end) {
		return unreachable(end)
	}

	r := newSearch(g, start)
	r.run(end, opts)
	return r.path(end)
}

func unreachable(end NodeID) Path {
	return Path{Nodes: []NodeID{end}, Distance: math.Inf(1)}
}

type search struct {
	g        *Graph
	start    NodeID
	dist     []float64
	prev     []NodeID
	viaTech  []bool
	settled  []bool
	frontier nodePQ
}

func newSearch(g *Graph, start NodeID) *search {
	n := g.Cap()
	r := &search{
		g:       g,
		start:   start,
		dist:    make([]float64, n),
		prev:    make([]NodeID, n),
		viaTech: make([]bool, n),
		settled: make([]bool, n),
	}
	for i := range r.dist {
		r.dist[i] = math.Inf(1)
		r.prev[i] = NoNode
	}
	r.dist[start] = 0
	heap.Push(&r.frontier, &pqItem{id: start, dist: 0})
	return r
}

func (r *search) run(end NodeID, opts SearchOptions) {
	outsideTechnical := false

	for r.frontier.Len() > 0 {
		item := heap.Pop(&r.frontier).(*pqItem)
		u := item.id
		if r.settled[u] || item.dist > r.dist[u] {
			continue
		}
		if opts.MaxDistance > 0 && item.dist > opts.MaxDistance {
			return
		}
		r.settled[u] = true

		if u != r.start && !r.viaTech[u] {
			outsideTechnical = true
		}
		if u == end {
			return
		}

		for _, e := range r.g.Edges(u) {
			if e.Technical && outsideTechnical && !opts.TechnicalAllowed {
				continue
			}
			if r.settled[e.To] {
				continue
			}
			nd := r.dist[u] + e.Weight
			if nd < r.dist[e.To] {
				r.dist[e.To] = nd
				r.prev[e.To] = u
				r.viaTech[e.To] = e.Technical
				heap.Push(&r.frontier, &pqItem{id: e.To, dist: nd})
			}
		}
	}
}

// path walks the predecessor chain back from end
func (r *search) path(end NodeID) Path {
	if !r.settled[end] {
		return unreachable(end)
	}

	var nodes []NodeID
	usesTechnical := false
	for v := end; v != r.start; v = r.prev[v] {
		if r.prev[v] == NoNode {
			return unreachable(end)
		}
		nodes = append(nodes, v)
		usesTechnical = usesTechnical || r.viaTech[v]
	}
	nodes = append(nodes, r.start)

	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}

	return Path{
		Nodes:         nodes,
		Distance:      r.dist[end],
		Found:         true,
		UsesTechnical: usesTechnical,
	}
}

type pqItem struct {
	id    NodeID
	dist  float64
	index int
}

// nodePQ is a min-heap on tentative distance
type nodePQ []*pqItem

func (pq nodePQ) Len() int { return len(pq) }

func (pq nodePQ) Less(i, j int) bool { return pq[i].dist < pq[j].dist }

func (pq nodePQ) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *nodePQ) Push(x any) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *nodePQ) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}
