package dagedit

// Arc is an ordered (From, To) pair of node ids.
type Arc struct {
	From string
	To   string
}

// FindCycle reports whether the arcs over nodeIDs contain a directed cycle.
// When one exists it returns a concrete cycle starting and ending at the same
// node, e.g. [A B C A]. A self-loop A->A is returned as [A A].
//
// Roots are visited in nodeIDs order, then in first-appearance order for ids
// that appear only in arcs; children in arc order. The same input therefore
// always yields the same path. The DFS keeps its own stack, so depth is not
// bounded by the goroutine stack. Runs in O(V+E).
func FindCycle(nodeIDs []string, arcs []Arc) ([]string, bool) {
	order := make([]string, 0, len(nodeIDs))
	seen := make(map[string]bool, len(nodeIDs))
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	for _, id := range nodeIDs {
		add(id)
	}

	adj := make(map[string][]string)
	for _, a := range arcs {
		adj[a.From] = append(adj[a.From], a.To)
		// Also include nodes referenced only in arcs.
		add(a.From)
		add(a.To)
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	type frame struct {
		id   string
		next int // index of the next child to explore
	}

	state := make(map[string]int, len(order))
	depth := make(map[string]int) // stack index of every visiting node

	for _, root := range order {
		if state[root] != unvisited {
			continue
		}
		state[root] = visiting
		depth[root] = 0
		stack := []frame{{id: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := adj[top.id]
			if top.next == len(children) {
				state[top.id] = visited
				delete(depth, top.id)
				stack = stack[:len(stack)-1]
				continue
			}

			child := children[top.next]
			top.next++

			switch state[child] {
			case visiting:
				path := make([]string, 0, len(stack)-depth[child]+1)
				for _, f := range stack[depth[child]:] {
					path = append(path, f.id)
				}
				return append(path, child), true
			case unvisited:
				state[child] = visiting
				depth[child] = len(stack)
				stack = append(stack, frame{id: child})
			}
		}
	}

	return nil, false
}
