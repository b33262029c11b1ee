package graph

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// NodeID is an index into the node arena
type NodeID int32

// NoNode marks a missing node reference
const NoNode NodeID = -1

var (
	// ErrNotConnected is returned when an operation needs an existing connection
	ErrNotConnected = errors.New("graph: nodes are not connected")
	// ErrUnknownNode is returned for ids outside the arena or of removed nodes
	ErrUnknownNode = errors.New("graph: unknown node")
)

// Edge is a directed reference to a neighbor. Every connection is stored
// twice: a forward edge on one end and its Backward mirror on the other.
type Edge struct {
	To        NodeID
	Technical bool
	Backward  bool
	Weight    float64
}

// Node is a coordinate identity with its outgoing edges
type Node struct {
	Point orb.Point
	Edges []Edge
}

// Graph owns all nodes in an arena. Node ids stay stable for the lifetime
// of a node; removed slots are reused by later insertions.
type Graph struct {
	nodes []Node
	alive []bool
	index map[orb.Point]NodeID
	free  []NodeID
	live  int
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		index: make(map[orb.Point]NodeID),
	}
}

// NodeCount returns the number of live nodes
func (g *Graph) NodeCount() int {
	return g.live
}

// EdgeCount returns the number of connections (forward edges)
func (g *Graph) EdgeCount() int {
	count := 0
	g.ForEachEdge(func(NodeID, Edge) { count++ })
	return count
}

// Cap returns the arena size. Every live id is below Cap.
func (g *Graph) Cap() int {
	return len(g.nodes)
}

// Empty reports whether the graph has no connections at all
func (g *Graph) Empty() bool {
	for id := range g.nodes {
		if g.alive[id] && len(g.nodes[id].Edges) > 0 {
			return false
		}
	}
	return true
}

// Has reports whether id refers to a live node
func (g *Graph) Has(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes) && g.alive[id]
}

// Point returns the coordinate of a node
func (g *Graph) Point(id NodeID) orb.Point {
	return g.nodes[id].Point
}

// Edges returns the outgoing edges of a node. The slice must not be modified.
func (g *Graph) Edges(id NodeID) []Edge {
	return g.nodes[id].Edges
}

// Lookup finds the node at an exact coordinate
func (g *Graph) Lookup(p orb.Point) (NodeID, bool) {
	id, ok := g.index[p]
	return id, ok
}

// NodeIDs returns the ids of all live nodes in arena order
func (g *Graph) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, g.live)
	for id := range g.nodes {
		if g.alive[id] {
			ids = append(ids, NodeID(id))
		}
	}
	return ids
}

// AddNode returns the node at p, creating it if needed
func (g *Graph) AddNode(p orb.Point) NodeID {
	if id, ok := g.index[p]; ok {
		return id
	}

	var id NodeID
	if n := len(g.free); n > 0 {
		id = g.free[n-1]
		g.free = g.free[:n-1]
		g.nodes[id] = Node{Point: p}
		g.alive[id] = true
	} else {
		id = NodeID(len(g.nodes))
		g.nodes = append(g.nodes, Node{Point: p})
		g.alive = append(g.alive, true)
	}
	g.index[p] = id
	g.live++
	return id
}

// RemoveNode disconnects a node from all neighbors and frees its slot
func (g *Graph) RemoveNode(id NodeID) {
	if !g.Has(id) {
		return
	}
	for _, e := range append([]Edge(nil), g.nodes[id].Edges...) {
		g.Disconnect(id, e.To)
	}

	delete(g.index, g.nodes[id].Point)
	g.nodes[id] = Node{}
	g.alive[id] = false
	g.live--

	// The last slot is trimmed instead of recycled, so a splice followed by
	// its revert leaves the arena exactly as it was.
	if int(id) == len(g.nodes)-1 {
		g.nodes = g.nodes[:id]
		g.alive = g.alive[:id]
		for len(g.nodes) > 0 && !g.alive[len(g.nodes)-1] {
			last := NodeID(len(g.nodes) - 1)
			g.free = removeID(g.free, last)
			g.nodes = g.nodes[:last]
			g.alive = g.alive[:last]
		}
		return
	}
	g.free = append(g.free, id)
}

// Connect links a and b in both directions with the given technical flag.
// The forward edge is stored on a. Connecting already connected nodes or a
// node to itself is a no-op.
func (g *Graph) Connect(a, b NodeID, technical bool) {
	if a == b || g.Connected(a, b) {
		return
	}
	weight := Distance(g.nodes[a].Point, g.nodes[b].Point)
	g.nodes[a].Edges = append(g.nodes[a].Edges, Edge{To: b, Technical: technical, Weight: weight})
	g.nodes[b].Edges = append(g.nodes[b].Edges, Edge{To: a, Technical: technical, Backward: true, Weight: weight})
}

// Disconnect removes both directions of the a-b connection
func (g *Graph) Disconnect(a, b NodeID) bool {
	i := g.edgeIndex(a, b)
	j := g.edgeIndex(b, a)
	if i < 0 && j < 0 {
		return false
	}
	if i >= 0 {
		g.removeEdgeAt(a, i)
	}
	if j >= 0 {
		g.removeEdgeAt(b, j)
	}
	return true
}

// Connected reports whether a has an edge to b
func (g *Graph) Connected(a, b NodeID) bool {
	return g.edgeIndex(a, b) >= 0
}

// Edge returns the edge stored on a that points at b
func (g *Graph) Edge(a, b NodeID) (Edge, bool) {
	i := g.edgeIndex(a, b)
	if i < 0 {
		return Edge{}, false
	}
	return g.nodes[a].Edges[i], true
}

// ForEachEdge calls fn once per connection, from the node holding the
// forward edge
func (g *Graph) ForEachEdge(fn func(from NodeID, e Edge)) {
	for id := range g.nodes {
		if !g.alive[id] {
			continue
		}
		for _, e := range g.nodes[id].Edges {
			if !e.Backward {
				fn(NodeID(id), e)
			}
		}
	}
}

// CheckSymmetry verifies that every forward edge has a mirrored backward
// edge with equal weight and technical flag
func (g *Graph) CheckSymmetry() error {
	var err error
	g.ForEachEdge(func(from NodeID, e Edge) {
		if err != nil {
			return
		}
		back, ok := g.Edge(e.To, from)
		switch {
		case !ok:
			err = fmt.Errorf("edge %d->%d has no mirror", from, e.To)
		case !back.Backward:
			err = fmt.Errorf("mirror of %d->%d is not marked backward", from, e.To)
		case back.Weight != e.Weight || back.Technical != e.Technical:
			err = fmt.Errorf("mirror of %d->%d differs in weight or technical flag", from, e.To)
		}
	})
	return err
}

func (g *Graph) edgeIndex(a, b NodeID) int {
	if !g.Has(a) {
		return -1
	}
	for i, e := range g.nodes[a].Edges {
		if e.To == b {
			return i
		}
	}
	return -1
}

func (g *Graph) removeEdgeAt(a NodeID, i int) Edge {
	edges := g.nodes[a].Edges
	removed := edges[i]
	copy(edges[i:], edges[i+1:])
	g.nodes[a].Edges = edges[:len(edges)-1]
	return removed
}

func (g *Graph) insertEdgeAt(a NodeID, i int, e Edge) {
	edges := append(g.nodes[a].Edges, Edge{})
	copy(edges[i+1:], edges[i:])
	edges[i] = e
	g.nodes[a].Edges = edges
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
