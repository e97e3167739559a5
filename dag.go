// Package dagedit is the consistency and validation engine behind a graph
// editor. It keeps a node/edge graph acyclic and free of self-loops,
// duplicate edges, and dangling references across every mutation, and
// converts graphs to and from a label-addressed adjacency-list text form.
//
// The package performs no I/O. Hosts seed an [Editor] from a payload, apply
// mutations to it, and persist committed graphs through a [Store].
package dagedit

// Graph is a directed graph of nodes and edges.
// Nodes and Edges keep insertion order; that order drives serialization and
// the traversal order of cycle detection.
type Graph struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node represents a vertex in the graph.
// Ref is a temporary key used only while seeding a graph from a payload; it is never committed.
type Node struct {
	ID    string  `json:"id,omitempty"`
	Ref   string  `json:"ref,omitempty"`
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Edge represents a directed connection between two nodes.
// SourceRef / TargetRef are temporary keys used only while seeding; they are never committed.
type Edge struct {
	ID        string `json:"id,omitempty"`
	SourceID  string `json:"source_id,omitempty"`
	TargetID  string `json:"target_id,omitempty"`
	SourceRef string `json:"source_ref,omitempty"`
	TargetRef string `json:"target_ref,omitempty"`
}

// IsSelfLoop reports whether the edge starts and ends at the same node.
func (e Edge) IsSelfLoop() bool { return e.SourceID == e.TargetID }

// NodeExists reports whether a node with the given id is in the graph.
func (g Graph) NodeExists(id string) bool {
	_, ok := g.Node(id)
	return ok
}

// EdgeExists reports whether an edge with the given id is in the graph.
func (g Graph) EdgeExists(id string) bool {
	_, ok := g.Edge(id)
	return ok
}

// Node returns the node with the given id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Edge returns the edge with the given id.
func (g Graph) Edge(id string) (Edge, bool) {
	for _, e := range g.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// OutgoingEdges returns the edges whose source is nodeID, in insertion order.
// Returns an empty slice (not nil) if none found.
func (g Graph) OutgoingEdges(nodeID string) []Edge {
	out := []Edge{}
	for _, e := range g.Edges {
		if e.SourceID == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// IncomingEdges returns the edges whose target is nodeID, in insertion order.
// Returns an empty slice (not nil) if none found.
func (g Graph) IncomingEdges(nodeID string) []Edge {
	in := []Edge{}
	for _, e := range g.Edges {
		if e.TargetID == nodeID {
			in = append(in, e)
		}
	}
	return in
}

// Clone returns a deep copy of the graph. The copy never aliases g's slices.
func (g Graph) Clone() Graph {
	c := Graph{ID: g.ID, Nodes: make([]Node, len(g.Nodes)), Edges: make([]Edge, len(g.Edges))}
	copy(c.Nodes, g.Nodes)
	copy(c.Edges, g.Edges)
	return c
}

// nodeIDs returns the ids of all nodes, in insertion order.
func (g Graph) nodeIDs() []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}
