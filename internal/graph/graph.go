package graph

import "fmt"

// Graph is an insertion-ordered collection of nodes keyed by ID.
type Graph struct {
	order []string
	nodes map[string]*Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// Put adds a node, or replaces the node with the same ID in place.
func (g *Graph) Put(n *Node) {
	if n == nil {
		return
	}
	if _, ok := g.nodes[n.ID]; !ok {
		g.order = append(g.order, n.ID)
	}
	if n.Data == nil {
		n.Data = Bag{}
	}
	g.nodes[n.ID] = n
}

// Get returns the node with the given ID.
func (g *Graph) Get(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// MustGet returns the node with the given ID or panics.
func (g *Graph) MustGet(id string) *Node {
	n, ok := g.nodes[id]
	if !ok {
		panic(fmt.Sprintf("graph: node %q not found", id))
	}
	return n
}

// Entries returns all nodes in insertion order.
func (g *Graph) Entries() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Find returns the first node, in insertion order, matching pred.
func (g *Graph) Find(pred Predicate) *Node {
	for _, id := range g.order {
		if n := g.nodes[id]; pred(n) {
			return n
		}
	}
	return nil
}

// Filter returns every node matching pred, in insertion order.
func (g *Graph) Filter(pred Predicate) []*Node {
	var out []*Node
	for _, id := range g.order {
		if n := g.nodes[id]; pred(n) {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// Clone returns a graph with cloned nodes in the same order.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		order: append([]string(nil), g.order...),
		nodes: make(map[string]*Node, len(g.nodes)),
	}
	for id, n := range g.nodes {
		c.nodes[id] = n.Clone()
	}
	return c
}
