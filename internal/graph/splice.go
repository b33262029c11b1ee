package graph

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Splice records a temporary node inserted into the connection A-B so
// that Unsplice can put the original edges back into their exact slots.
type Splice struct {
	Temp NodeID
	A, B NodeID

	edgeA, edgeB Edge
	slotA, slotB int
	inserted     bool
}

// Inserted reports whether the splice created a new node. A splice at an
// existing coordinate reuses that node and has nothing to revert.
func (s Splice) Inserted() bool {
	return s.inserted
}

// Split inserts a node at p between the connected nodes a and b. The new
// node inherits the connection's technical flag and orientation; weights are
// recomputed for both halves.
func (g *Graph) Split(a, b NodeID, p orb.Point) (Splice, error) {
	if id, ok := g.Lookup(p); ok {
		return Splice{Temp: id, A: a, B: b}, nil
	}

	slotA := g.edgeIndex(a, b)
	slotB := g.edgeIndex(b, a)
	if slotA < 0 || slotB < 0 {
		return Splice{}, fmt.Errorf("split %d-%d: %w", a, b, ErrNotConnected)
	}

	s := Splice{
		A:        a,
		B:        b,
		edgeA:    g.removeEdgeAt(a, slotA),
		edgeB:    g.removeEdgeAt(b, slotB),
		slotA:    slotA,
		slotB:    slotB,
		inserted: true,
	}
	s.Temp = g.AddNode(p)

	technical := s.edgeA.Technical
	if s.edgeA.Backward {
		// b holds the forward edge, keep the direction b -> temp -> a
		g.Connect(b, s.Temp, technical)
		g.Connect(s.Temp, a, technical)
	} else {
		g.Connect(a, s.Temp, technical)
		g.Connect(s.Temp, b, technical)
	}
	return s, nil
}

// Unsplice removes the temporary node and restores the original A-B edges.
// A temporary node with anything other than its two splice edges means the
// graph was modified concurrently and is reported as an error.
func (g *Graph) Unsplice(s Splice) error {
	if !s.inserted {
		return nil
	}
	if !g.Has(s.Temp) {
		return fmt.Errorf("unsplice: temporary node %d: %w", s.Temp, ErrUnknownNode)
	}
	if n := len(g.nodes[s.Temp].Edges); n != 2 {
		return fmt.Errorf("unsplice: temporary node %d has %d edges, want 2", s.Temp, n)
	}
	if !g.Connected(s.Temp, s.A) || !g.Connected(s.Temp, s.B) {
		return fmt.Errorf("unsplice: temporary node %d lost its neighbors %d and %d", s.Temp, s.A, s.B)
	}

	g.RemoveNode(s.Temp)
	g.insertEdgeAt(s.A, s.slotA, s.edgeA)
	g.insertEdgeAt(s.B, s.slotB, s.edgeB)
	return nil
}
