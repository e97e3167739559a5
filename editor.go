package dagedit

// Editor applies mutations to one graph. The committed graph is always valid:
// every mutation is applied to a working copy, validated, and committed only
// on success, in which case the previous state is recorded for undo.
// On failure the committed graph is unchanged and the error is a
// *RejectedError carrying the full ValidationResult.
//
// Editor is not safe for concurrent use. Hosts serialize mutations per graph.
type Editor struct {
	current Graph
	history *History
	newID   func() string
}

// Option configures an Editor.
type Option func(*Editor)

// WithHistoryLimit bounds the undo stack to n snapshots. n <= 0 means unbounded.
func WithHistoryLimit(n int) Option {
	return func(ed *Editor) { ed.history = NewHistory(n) }
}

// WithIDGenerator replaces NewID as the source of node, edge, and graph ids.
func WithIDGenerator(fn func() string) Option {
	return func(ed *Editor) { ed.newID = fn }
}

// NewEditor seeds an Editor from a payload such as a request body or a
// persisted record. Missing ids are assigned and refs resolved (see Resolve);
// an empty graph ID gets a fresh id. The seed must be valid.
func NewEditor(seed Graph, opts ...Option) (*Editor, error) {
	ed := &Editor{history: NewHistory(0), newID: NewID}
	for _, opt := range opts {
		opt(ed)
	}

	g := seed.Clone()
	Resolve(&g, ed.newID)
	if g.ID == "" {
		g.ID = ed.newID()
	}
	if err := Validate(g).Err(); err != nil {
		return nil, err
	}
	ed.current = g
	return ed, nil
}

// Clone returns an independent Editor with the same committed graph and
// history. Hosts keep one to roll back to when a commit cannot be persisted.
func (ed *Editor) Clone() *Editor {
	return &Editor{current: ed.current.Clone(), history: ed.history.Clone(), newID: ed.newID}
}

// Graph returns a copy of the committed graph.
func (ed *Editor) Graph() Graph { return ed.current.Clone() }

// Check validates a candidate graph without committing it or touching
// history, e.g. for feedback before a client submits.
func (ed *Editor) Check(candidate Graph) ValidationResult {
	g := candidate.Clone()
	Resolve(&g, ed.newID)
	return Validate(g)
}

// AddNode adds a node with a fresh id. It cannot violate any invariant.
func (ed *Editor) AddNode(label string, x, y float64) (Node, error) {
	n := Node{ID: ed.newID(), Label: label, X: x, Y: y}
	working := ed.current.Clone()
	working.Nodes = append(working.Nodes, n)
	if err := ed.commit(working); err != nil {
		return Node{}, err
	}
	return n, nil
}

// UpdateNode changes a node's label and position.
// Rejects with NotFound if the node doesn't exist.
func (ed *Editor) UpdateNode(id, label string, x, y float64) error {
	working := ed.current.Clone()
	for i := range working.Nodes {
		if working.Nodes[i].ID == id {
			working.Nodes[i].Label = label
			working.Nodes[i].X = x
			working.Nodes[i].Y = y
			return ed.commit(working)
		}
	}
	return reject(NotFound(id))
}

// RemoveNode removes a node and every edge that starts or ends at it.
// Rejects with NotFound if the node doesn't exist.
func (ed *Editor) RemoveNode(id string) error {
	if !ed.current.NodeExists(id) {
		return reject(NotFound(id))
	}

	working := Graph{ID: ed.current.ID, Nodes: []Node{}, Edges: []Edge{}}
	for _, n := range ed.current.Nodes {
		if n.ID != id {
			working.Nodes = append(working.Nodes, n)
		}
	}
	for _, e := range ed.current.Edges {
		if e.SourceID != id && e.TargetID != id {
			working.Edges = append(working.Edges, e)
		}
	}
	return ed.commit(working)
}

// AddEdge adds a directed edge with a fresh id. It is rejected with
// InvalidNodeReference, SelfLoop, DuplicateEdge, or CycleDetected if the
// edge would break an invariant.
func (ed *Editor) AddEdge(sourceID, targetID string) (Edge, error) {
	e := Edge{ID: ed.newID(), SourceID: sourceID, TargetID: targetID}
	working := ed.current.Clone()
	working.Edges = append(working.Edges, e)
	if err := ed.commit(working); err != nil {
		return Edge{}, err
	}
	return e, nil
}

// RemoveEdge removes an edge.
// Rejects with NotFound if the edge doesn't exist.
func (ed *Editor) RemoveEdge(id string) error {
	if !ed.current.EdgeExists(id) {
		return reject(NotFound(id))
	}

	working := Graph{ID: ed.current.ID, Nodes: append([]Node{}, ed.current.Nodes...), Edges: []Edge{}}
	for _, e := range ed.current.Edges {
		if e.ID != id {
			working.Edges = append(working.Edges, e)
		}
	}
	return ed.commit(working)
}

// ReplaceAll swaps in a complete node/edge set, e.g. an editor's full-state
// save. The replacement is resolved (see Resolve) and validated as a unit;
// on failure every error is returned and nothing changes.
func (ed *Editor) ReplaceAll(nodes []Node, edges []Edge) (Graph, error) {
	working := Graph{
		ID:    ed.current.ID,
		Nodes: append([]Node{}, nodes...),
		Edges: append([]Edge{}, edges...),
	}
	Resolve(&working, ed.newID)
	if err := ed.commit(working); err != nil {
		return Graph{}, err
	}
	return ed.Graph(), nil
}

// Import replaces the graph with the contents of adjacency text. Malformed
// lines and validation errors are reported together (see CheckAdjacencyList).
func (ed *Editor) Import(text string) (Graph, error) {
	working, res := CheckAdjacencyList(text, ed.newID)
	if !res.IsValid {
		return Graph{}, res.Err()
	}
	working.ID = ed.current.ID
	if err := ed.commit(working); err != nil {
		return Graph{}, err
	}
	return ed.Graph(), nil
}

// Export renders the committed graph as adjacency text.
func (ed *Editor) Export() (string, error) {
	return SerializeAdjacencyList(ed.current)
}

// Undo restores the previous committed graph.
// Returns ErrNothingToUndo if there is nothing to undo.
func (ed *Editor) Undo() (Graph, error) {
	prev, err := ed.history.Undo(ed.current)
	if err != nil {
		return Graph{}, err
	}
	ed.current = prev
	return ed.Graph(), nil
}

// Redo re-applies the most recently undone commit.
// Returns ErrNothingToRedo if there is nothing to redo.
func (ed *Editor) Redo() (Graph, error) {
	next, err := ed.history.Redo(ed.current)
	if err != nil {
		return Graph{}, err
	}
	ed.current = next
	return ed.Graph(), nil
}

// CanUndo reports whether Undo would succeed.
func (ed *Editor) CanUndo() bool { return ed.history.CanUndo() }

// CanRedo reports whether Redo would succeed.
func (ed *Editor) CanRedo() bool { return ed.history.CanRedo() }

// HistoryDepth returns the sizes of the undo and redo stacks.
func (ed *Editor) HistoryDepth() (undo, redo int) { return ed.history.Depth() }

// commit validates working and, if valid, makes it current.
// working must not share slices with the committed graph.
func (ed *Editor) commit(working Graph) error {
	if err := Validate(working).Err(); err != nil {
		return err
	}
	ed.history.Record(ed.current)
	ed.current = working
	return nil
}
