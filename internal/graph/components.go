package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Components returns the connected components of the graph, largest first.
// A walkable map is normally one component; extra ones point at polylines
// that never touch the rest of the network.
func (g *Graph) Components() [][]NodeID {
	ug := simple.NewUndirectedGraph()
	for _, id := range g.NodeIDs() {
		ug.AddNode(simple.Node(int64(id)))
	}
	g.ForEachEdge(func(from NodeID, e Edge) {
		ug.SetEdge(ug.NewEdge(simple.Node(int64(from)), simple.Node(int64(e.To))))
	})

	raw := topo.ConnectedComponents(ug)
	components := make([][]NodeID, len(raw))
	for i, nodes := range raw {
		ids := make([]NodeID, len(nodes))
		for j, n := range nodes {
			ids[j] = NodeID(n.ID())
		}
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		components[i] = ids
	}
	sort.SliceStable(components, func(a, b int) bool {
		if len(components[a]) != len(components[b]) {
			return len(components[a]) > len(components[b])
		}
		return components[a][0] < components[b][0]
	})
	return components
}

// Stats summarizes the graph for diagnostics
type Stats struct {
	Nodes      int `json:"nodes"`
	Edges      int `json:"edges"`
	Technical  int `json:"technical_edges"`
	Components int `json:"components"`
}

// Stats computes node, edge and component counts
func (g *Graph) Stats() Stats {
	s := Stats{Nodes: g.NodeCount()}
	g.ForEachEdge(func(_ NodeID, e Edge) {
		s.Edges++
		if e.Technical {
			s.Technical++
		}
	})
	s.Components = len(g.Components())
	return s
}
